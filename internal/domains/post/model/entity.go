package model

// Collection and feed constants
const (
	CollectionPosts = "posts"
	FeedLimit       = 25
	MaxBodyLength   = 180
)

// Document field names in the "posts" collection.
const (
	FieldBody       = "body"
	FieldAuthorID   = "authorId"
	FieldAuthorName = "authorName"
	FieldImageData  = "imageData"
	FieldCreatedAt  = "createdAt"
)

// Post is one entry of the feed.
type Post struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	AuthorID   string  `json:"authorId"`
	AuthorName string  `json:"authorName"`
	ImageData  *string `json:"imageData"`
	CreatedAt  int64   `json:"createdAt"` // unix millis
}

// IsAuthor reports whether callerID wrote the post.
func (p Post) IsAuthor(callerID string) bool {
	return callerID != "" && p.AuthorID == callerID
}

// Scope selects which posts a feed shows.
type Scope struct {
	// AuthorID restricts the feed to one author. Empty means all posts.
	AuthorID string
}

func AllPosts() Scope {
	return Scope{}
}

func ByAuthor(authorID string) Scope {
	return Scope{AuthorID: authorID}
}

func (s Scope) IsAll() bool {
	return s.AuthorID == ""
}

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return "author:" + s.AuthorID
}

// Patch lists the user-editable fields to change. A nil Body leaves the body
// untouched; SetImage=false leaves the image untouched, SetImage=true with a
// nil ImageData removes it.
type Patch struct {
	Body      *string
	SetImage  bool
	ImageData *string
}

func (p Patch) IsEmpty() bool {
	return p.Body == nil && !p.SetImage
}
