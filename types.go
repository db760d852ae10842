package mirrorlai

import "golang.org/x/net/html"

// ItemKind tells whether a translatable item lives in a text node or in an
// element attribute.
type ItemKind string

const (
	// KindText is a text node whose whole value is replaced on apply.
	KindText ItemKind = "text"
	// KindAttribute is a human-readable attribute such as title or placeholder.
	KindAttribute ItemKind = "attribute"
)

// TranslatableItem is one piece of translatable content found in a document.
//
// Node is a non-owning reference into the live document. The pipeline only
// reads through it and, once a translation arrives, writes back in place if
// the node is still attached.
type TranslatableItem struct {
	Kind   ItemKind
	Node   *html.Node
	Attr   string // Attribute name, set only for KindAttribute
	Source string // Cache identity: the exact source string
}

// Resolved pairs an item with the translation it should receive.
type Resolved struct {
	Item        TranslatableItem
	Translation string
}

// Batch limits used by the client side of the translation contract.
const (
	MaxBatchItems = 40
	MaxBatchChars = 3500

	// MinTextLength is the minimum trimmed length of a collected text node.
	MinTextLength = 2
)

// Limits enforced by the translation endpoint on every request.
const (
	ServerMaxStrings = 60
	ServerMaxChars   = 8000
)

// BatchLimits bounds the size of a single translation request.
type BatchLimits struct {
	MaxItems int // Maximum strings per batch
	MaxChars int // Maximum combined characters per batch
}

// DefaultBatchLimits returns the client-side batch limits.
func DefaultBatchLimits() BatchLimits {
	return BatchLimits{
		MaxItems: MaxBatchItems,
		MaxChars: MaxBatchChars,
	}
}

// ProcessedContent is the result of translating a whole HTML document.
type ProcessedContent struct {
	Content         string // Rendered document
	TranslatedCount int    // Unique strings translated by the remote endpoint
	CachedCount     int    // Items resolved from cache
	FailedCount     int    // Unique strings left untranslated after a failure
	TotalNodes      int    // Items collected
}

// RunStats describes one pipeline pass.
type RunStats struct {
	Collected    int   // Items found by the collector
	Cached       int   // Items applied straight from cache
	Skipped      int   // Items dropped because their source was already pending
	Requested    int   // Unique strings queued for translation
	Translated   int   // Unique strings translated during this pass
	Failed       int   // Unique strings abandoned because a batch failed
	BatchesSent  int   // Requests issued
	BatchesTotal int   // Requests planned
	Applied      int   // Writes made to attached nodes
	Stale        int   // Writes skipped because the node was detached
	Err          error // First batch failure, if any
}

// DefaultExcludedTags lists elements whose subtrees never contain
// translatable content.
var DefaultExcludedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"path":     true,
	"template": true,
	"code":     true,
	"pre":      true,
	"textarea": true,
}

// DefaultTranslatableAttributes lists attributes carrying human-readable text.
var DefaultTranslatableAttributes = []string{"title", "aria-label", "placeholder"}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}
