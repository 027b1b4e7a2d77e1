package constant

type Provider string

const (
	ProviderZoom Provider = "zoom"
	ProviderGong Provider = "gong"
)

func (p Provider) String() string {
	return string(p)
}

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusSkipped SyncStatus = "SKIPPED"
	SyncStatusFailed  SyncStatus = "FAILED"
)

type JobType string

const (
	JobTypeSync    JobType = "sync"
	JobTypePreview JobType = "preview"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
