package db

import (
	"encoding/json"
	"time"
)

// Source maps aiscan.sources. One registered content source per row.
type Source struct {
	SourceID      int64           `gorm:"column:source_id;primaryKey;autoIncrement"`
	SourceUUID    string          `gorm:"column:source_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Slug          string          `gorm:"column:slug;type:text;not null;unique"`
	Name          string          `gorm:"column:name;type:text;not null"`
	URL           string          `gorm:"column:url;type:text;not null"`
	FeedURL       *string         `gorm:"column:feed_url;type:text"`
	Provider      string          `gorm:"column:provider;type:text;not null"`
	Bucket        string          `gorm:"column:bucket;type:text;not null"`
	Reliability   string          `gorm:"column:reliability;type:text;not null;default:MEDIUM"`
	Weight        float64         `gorm:"column:weight;type:double precision;not null;default:0.5"`
	Enabled       bool            `gorm:"column:enabled;type:boolean;not null;default:true"`
	Config        json.RawMessage `gorm:"column:config;type:jsonb"`
	HealthStatus  string          `gorm:"column:health_status;type:text;not null;default:healthy"`
	FailureStreak int             `gorm:"column:failure_streak;type:integer;not null;default:0"`
	LastSuccessAt *time.Time      `gorm:"column:last_success_at;type:timestamptz"`
	LastError     *string         `gorm:"column:last_error;type:text"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "aiscan.sources" }

// RawItem maps aiscan.raw_items. Fetched payloads before normalization,
// upserted on (source_id, external_id).
type RawItem struct {
	RawItemID        int64           `gorm:"column:raw_item_id;primaryKey;autoIncrement"`
	RawItemUUID      string          `gorm:"column:raw_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceID         int64           `gorm:"column:source_id;type:bigint;not null"`
	ExternalID       string          `gorm:"column:external_id;type:text;not null"`
	Title            string          `gorm:"column:title;type:text;not null"`
	URL              string          `gorm:"column:url;type:text;not null"`
	Author           *string         `gorm:"column:author;type:text"`
	AuthorHandle     *string         `gorm:"column:author_handle;type:text"`
	Language         *string         `gorm:"column:language;type:text"`
	Content          string          `gorm:"column:content;type:text;not null;default:''"`
	PublishedAt      *time.Time      `gorm:"column:published_at;type:timestamptz"`
	IngestedAt       time.Time       `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
	ItemHash         string          `gorm:"column:item_hash;type:text;not null"`
	EngagementProxy  *float64        `gorm:"column:engagement_proxy;type:double precision"`
	OriginLinkCount  *int            `gorm:"column:origin_link_count;type:integer"`
	AuthorReputation *float64        `gorm:"column:author_reputation;type:double precision"`
	PracticalScore   *float64        `gorm:"column:practical_score;type:double precision"`
	IsSocialInsight  *bool           `gorm:"column:is_social_insight;type:boolean"`
	QuotedLinks      json.RawMessage `gorm:"column:quoted_links;type:jsonb"`
	Payload          json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (RawItem) TableName() string { return "aiscan.raw_items" }

// NormalizedItem maps aiscan.normalized_items. One curated record per raw
// item, upserted on raw_item_id.
type NormalizedItem struct {
	NormalizedItemID   int64           `gorm:"column:normalized_item_id;primaryKey;autoIncrement"`
	NormalizedItemUUID string          `gorm:"column:normalized_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RawItemID          int64           `gorm:"column:raw_item_id;type:bigint;not null;unique"`
	SourceID           int64           `gorm:"column:source_id;type:bigint;not null"`
	DisplayTitle       string          `gorm:"column:display_title;type:text;not null"`
	CanonicalURL       string          `gorm:"column:canonical_url;type:text;not null"`
	TitleHash          string          `gorm:"column:title_hash;type:text;not null"`
	ContentHash        string          `gorm:"column:content_hash;type:text;not null"`
	ContentSnippet     string          `gorm:"column:content_snippet;type:text;not null;default:''"`
	Summary            string          `gorm:"column:summary;type:text;not null;default:''"`
	InsightTags        json.RawMessage `gorm:"column:insight_tags;type:jsonb"`
	Language           *string         `gorm:"column:language;type:text"`
	PublishedAt        *time.Time      `gorm:"column:published_at;type:timestamptz"`
	IngestedAt         time.Time       `gorm:"column:ingested_at;type:timestamptz;not null"`
	EngagementProxy    float64         `gorm:"column:engagement_proxy;type:double precision;not null;default:0"`
	OriginLinkCount    int             `gorm:"column:origin_link_count;type:integer;not null;default:0"`
	AuthorReputation   float64         `gorm:"column:author_reputation;type:double precision;not null"`
	AuthorHandle       *string         `gorm:"column:author_handle;type:text"`
	PracticalScore     float64         `gorm:"column:practical_score;type:double precision;not null"`
	IsSocialInsight    bool            `gorm:"column:is_social_insight;type:boolean;not null;default:false"`
	HasPrimarySource   bool            `gorm:"column:has_primary_source;type:boolean;not null;default:true"`
	IsLowConfidence    bool            `gorm:"column:is_low_confidence;type:boolean;not null;default:false"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (NormalizedItem) TableName() string { return "aiscan.normalized_items" }

// EventCluster maps aiscan.event_clusters. One near-duplicate group per
// digest date, keyed by cluster_key.
type EventCluster struct {
	ClusterID            int64     `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID          string    `gorm:"column:cluster_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	DigestDate           time.Time `gorm:"column:digest_date;type:date;not null"`
	ClusterKey           string    `gorm:"column:cluster_key;type:text;not null"`
	RepresentativeItemID int64     `gorm:"column:representative_item_id;type:bigint;not null"`
	SourceCount          int       `gorm:"column:source_count;type:integer;not null;default:1"`
	Confidence           string    `gorm:"column:confidence;type:text;not null;default:low"`
	CreatedAt            time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EventCluster) TableName() string { return "aiscan.event_clusters" }

// DigestItem maps aiscan.digest_items. The published, ranked digest entry.
type DigestItem struct {
	DigestItemID       int64     `gorm:"column:digest_item_id;primaryKey;autoIncrement"`
	DigestItemUUID     string    `gorm:"column:digest_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	DigestDate         time.Time `gorm:"column:digest_date;type:date;not null"`
	ClusterID          *int64    `gorm:"column:cluster_id;type:bigint"`
	NormalizedItemID   int64     `gorm:"column:normalized_item_id;type:bigint;not null"`
	Category           string    `gorm:"column:category;type:text;not null"`
	Rank               int       `gorm:"column:rank;type:integer;not null"`
	Score              float64   `gorm:"column:score;type:double precision;not null"`
	BaseScore          float64   `gorm:"column:base_score;type:double precision;not null"`
	PracticalScore     float64   `gorm:"column:practical_score;type:double precision;not null"`
	Confidence         string    `gorm:"column:confidence;type:text;not null"`
	StreakDays         int       `gorm:"column:streak_days;type:integer;not null;default:1"`
	RepeatDecay        float64   `gorm:"column:repeat_decay;type:double precision;not null;default:1"`
	CrossSourceConfirm float64   `gorm:"column:cross_source_confirm;type:double precision;not null;default:0"`
	SourceCount        int       `gorm:"column:source_count;type:integer;not null;default:1"`
	ClusterKey         string    `gorm:"column:cluster_key;type:text;not null"`
	IsRecurringHot     bool      `gorm:"column:is_recurring_hot;type:boolean;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DigestItem) TableName() string { return "aiscan.digest_items" }

// JobRun maps aiscan.job_runs. Bookkeeping for ingest and publish runs.
type JobRun struct {
	JobRunID   int64           `gorm:"column:job_run_id;primaryKey;autoIncrement"`
	JobRunUUID string          `gorm:"column:job_run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	JobName    string          `gorm:"column:job_name;type:text;not null"`
	Status     string          `gorm:"column:status;type:text;not null;default:running"`
	StartedAt  time.Time       `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt *time.Time      `gorm:"column:finished_at;type:timestamptz"`
	Message    *string         `gorm:"column:message;type:text"`
	Counts     json.RawMessage `gorm:"column:counts;type:jsonb"`
}

func (JobRun) TableName() string { return "aiscan.job_runs" }

func autoMigrateModels() []any {
	return []any{
		&Source{},
		&RawItem{},
		&NormalizedItem{},
		&EventCluster{},
		&DigestItem{},
		&JobRun{},
	}
}
