package sourceschema

import (
	"encoding/json"
	"testing"
)

func TestValidateSourceConfig_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"keywords":["ai","agent"],
		"limit":40,
		"subreddit":"LocalLLaMA",
		"sort":"hot",
		"lang_allow":["en","zh"],
		"min_engagement":8
	}`)

	cfg, err := ValidateSourceConfig(payload)
	if err != nil {
		t.Fatalf("expected config to be valid, got error: %v", err)
	}

	if cfg.Subreddit != "LocalLLaMA" {
		t.Fatalf("expected subreddit=LocalLLaMA, got %q", cfg.Subreddit)
	}
	if cfg.Limit != 40 {
		t.Fatalf("expected limit=40, got %d", cfg.Limit)
	}
	if cfg.MinEngagement == nil || *cfg.MinEngagement != 8 {
		t.Fatalf("expected min_engagement=8, got %v", cfg.MinEngagement)
	}
}

func TestValidateSourceConfig_EmptyPayload(t *testing.T) {
	for _, payload := range []json.RawMessage{nil, json.RawMessage(""), json.RawMessage("null")} {
		cfg, err := ValidateSourceConfig(payload)
		if err != nil {
			t.Fatalf("expected empty payload to be valid, got error: %v", err)
		}
		if len(cfg.Keywords) != 0 || cfg.Limit != 0 {
			t.Fatalf("expected zero-value config, got %+v", cfg)
		}
	}
}

func TestValidateSourceConfig_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{"feed_depth":3}`)

	if _, err := ValidateSourceConfig(payload); err == nil {
		t.Fatalf("expected validation to fail for unknown field")
	}
}

func TestValidateSourceConfig_InvalidSort(t *testing.T) {
	payload := json.RawMessage(`{"subreddit":"MachineLearning","sort":"rising"}`)

	if _, err := ValidateSourceConfig(payload); err == nil {
		t.Fatalf("expected validation to fail for unsupported sort")
	}
}

func TestValidateSourceConfig_LimitBounds(t *testing.T) {
	payload := json.RawMessage(`{"limit":0}`)

	if _, err := ValidateSourceConfig(payload); err == nil {
		t.Fatalf("expected validation to fail for limit below 1")
	}
}

func TestValidateSourceConfig_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"limit":10}{"limit":20}`)

	if _, err := ValidateSourceConfig(payload); err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
