package ai

// DefaultEntityTypes defines the default categories for extracted entities.
var DefaultEntityTypes = []string{
	"person",
	"organization",
	"location",
	"event",
	"concept",
	"method",
	"technology",
	"artifact",
	"creature",
	"category",
}
