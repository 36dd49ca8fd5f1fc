package repository

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/infrastructure/directory"
	"nwitter-backend/internal/shared/apperror"
)

var _ Repository = (*directoryRepository)(nil)

type directoryRepository struct {
	dir       directory.Directory
	feedLimit int
	now       func() time.Time
}

// NewDirectoryRepository builds the post repository on top of dir.
// feedLimit <= 0 falls back to model.FeedLimit.
func NewDirectoryRepository(dir directory.Directory, feedLimit int) Repository {
	if feedLimit <= 0 {
		feedLimit = model.FeedLimit
	}
	return &directoryRepository{
		dir:       dir,
		feedLimit: feedLimit,
		now:       time.Now,
	}
}

// =====================================================
// CREATE
// =====================================================

func (r *directoryRepository) Create(
	ctx context.Context,
	authorID, authorName, body string,
	imageData *string,
) (string, error) {
	if authorID == "" {
		return "", apperror.Unauthenticated()
	}
	if err := model.ValidateBody(body); err != nil {
		return "", apperror.Validation(err.Error())
	}

	fields := directory.Fields{
		model.FieldBody:       body,
		model.FieldAuthorID:   authorID,
		model.FieldAuthorName: authorName,
		model.FieldImageData:  imageOrNil(imageData),
		model.FieldCreatedAt:  r.now().UnixMilli(),
	}

	id, err := r.dir.Insert(ctx, model.CollectionPosts, fields)
	if err != nil {
		return "", apperror.Remote("create post", err)
	}
	return id, nil
}

// =====================================================
// READ
// =====================================================

func (r *directoryRepository) Get(ctx context.Context, postID string) (*model.Post, error) {
	doc, err := r.dir.Get(ctx, model.CollectionPosts, postID)
	if err != nil {
		return nil, mapDirectoryError("get post", err)
	}

	post, err := decodePost(*doc)
	if err != nil {
		return nil, apperror.Remote("decode post", err)
	}
	return &post, nil
}

func (r *directoryRepository) Subscribe(
	ctx context.Context,
	scope model.Scope,
	onChange func([]model.Post),
) (Subscription, error) {
	q := r.scopeQuery(scope)
	q.Limit = r.feedLimit

	sub, err := r.dir.Watch(ctx, q, func(docs []directory.Document) {
		onChange(decodePosts(docs))
	})
	if err != nil {
		return nil, apperror.Remote("subscribe to feed", err)
	}
	return sub, nil
}

func (r *directoryRepository) List(ctx context.Context, scope model.Scope) ([]model.Post, error) {
	q := r.scopeQuery(scope)
	q.Limit = r.feedLimit

	docs, err := r.dir.Query(ctx, q)
	if err != nil {
		return nil, apperror.Remote("list feed", err)
	}
	return decodePosts(docs), nil
}

func (r *directoryRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	docs, err := r.dir.Query(ctx, r.scopeQuery(model.ByAuthor(authorID)))
	if err != nil {
		return nil, apperror.Remote("list posts by author", err)
	}
	return decodePosts(docs), nil
}

func (r *directoryRepository) scopeQuery(scope model.Scope) directory.Query {
	q := directory.Query{
		Collection: model.CollectionPosts,
		OrderBy:    model.FieldCreatedAt,
		Desc:       true,
	}
	if !scope.IsAll() {
		q = q.Where(model.FieldAuthorID, scope.AuthorID)
	}
	return q
}

// =====================================================
// UPDATE / DELETE
// =====================================================

func (r *directoryRepository) Update(ctx context.Context, postID, callerID string, patch model.Patch) error {
	if _, err := r.authorize(ctx, postID, callerID); err != nil {
		return err
	}

	fields := directory.Fields{}
	if patch.Body != nil {
		if err := model.ValidateBody(*patch.Body); err != nil {
			return apperror.Validation(err.Error())
		}
		fields[model.FieldBody] = *patch.Body
	}
	if patch.SetImage {
		fields[model.FieldImageData] = imageOrNil(patch.ImageData)
	}
	if len(fields) == 0 {
		return nil
	}

	if err := r.dir.Patch(ctx, model.CollectionPosts, postID, fields); err != nil {
		return mapDirectoryError("update post", err)
	}
	return nil
}

func (r *directoryRepository) Remove(ctx context.Context, postID, callerID string) error {
	if _, err := r.authorize(ctx, postID, callerID); err != nil {
		return err
	}

	if err := r.dir.Delete(ctx, model.CollectionPosts, postID); err != nil {
		return mapDirectoryError("delete post", err)
	}
	return nil
}

func (r *directoryRepository) RenameAuthor(ctx context.Context, postID, authorName string) error {
	err := r.dir.Patch(ctx, model.CollectionPosts, postID, directory.Fields{
		model.FieldAuthorName: authorName,
	})
	if err != nil {
		return mapDirectoryError("rename post author", err)
	}
	return nil
}

// authorize loads the post and checks that callerID wrote it.
func (r *directoryRepository) authorize(ctx context.Context, postID, callerID string) (*model.Post, error) {
	if callerID == "" {
		return nil, apperror.Unauthenticated()
	}

	post, err := r.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthor(callerID) {
		return nil, apperror.Authorization("only the author can modify this post")
	}
	return post, nil
}

// =====================================================
// HELPERS
// =====================================================

func mapDirectoryError(op string, err error) error {
	if errors.Is(err, directory.ErrDocumentNotFound) {
		return apperror.NotFound("post")
	}
	return apperror.Remote(op, err)
}

func imageOrNil(data *string) any {
	if data == nil || *data == "" {
		return nil
	}
	return *data
}

func decodePost(doc directory.Document) (model.Post, error) {
	var post model.Post

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return post, err
	}
	if err := json.Unmarshal(raw, &post); err != nil {
		return post, err
	}
	post.ID = doc.ID
	return post, nil
}

// decodePosts keeps the directory order and skips documents that do not
// decode as posts.
func decodePosts(docs []directory.Document) []model.Post {
	posts := make([]model.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := decodePost(doc)
		if err != nil {
			log.Warn().Err(err).Str("post_id", doc.ID).Msg("Skipping malformed post document")
			continue
		}
		posts = append(posts, post)
	}
	return posts
}
