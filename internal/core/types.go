package core

// Visibility values accepted by the publishing platform.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// CatalogItem is one product record returned by the catalog query.
type CatalogItem struct {
	// ID is the upstream identifier (an ASIN for the product API). It may be
	// empty for scraped or fixture items and is only used to key artifacts.
	ID            string
	Name          string
	Category      string
	Price         float64
	Rating        float64
	AffiliateLink string
}

// Filter selects catalog items. A zero MaxPrice means no upper bound.
type Filter struct {
	Category  string
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
}

// SpeechRequest asks a synthesizer to render Text into OutputPath.
// StoreKey names the durable copy when an object store is configured.
type SpeechRequest struct {
	Text       string
	OutputPath string
	StoreKey   string
}

// AudioArtifact references a rendered voiceover.
type AudioArtifact struct {
	Path     string
	StoreKey string
	Size     int64
}

// VideoArtifact references a composed video file.
type VideoArtifact struct {
	Path string
}

// ItemPaths are the artifact locations reserved for one item of a run.
type ItemPaths struct {
	AudioPath string
	VideoPath string
	StoreKey  string
}

// PublishRequest carries a video and its metadata to the publisher.
type PublishRequest struct {
	VideoPath   string
	Title       string
	Description string
	Tags        []string
	Visibility  string
}

// PublishResult is the platform acknowledgement of an upload.
type PublishResult struct {
	VideoID    string
	URL        string
	Visibility string
}

// Outcome describes one fully processed item.
type Outcome struct {
	RunID  string
	Index  int
	Item   CatalogItem
	Audio  AudioArtifact
	Result PublishResult
}
