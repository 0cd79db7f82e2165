package catalog

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ahinestrog/bookstore/internal/logging"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	RKBookCreated = "catalog.book.created"
	RKBookUpdated = "catalog.book.updated"
	RKBookDeleted = "catalog.book.deleted"
)

type Events interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

type BookEvent struct {
	BookID int64 `json:"book_id"`
}

// Page is one page of a listing.
type Page struct {
	Items      []*Book
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int64
}

// Service is the catalog lookup used by HTTP handlers. Single-book reads go
// through an LRU cache that every write invalidates.
type Service struct {
	repo   Repository
	events Events
	cache  *lru.Cache[int64, *Book]
	group  singleflight.Group
}

func NewService(repo Repository, events Events, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[int64, *Book](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, events: events, cache: cache}, nil
}

// NormalizePage clamps page and size to sane values.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func (s *Service) List(ctx context.Context, f Filter, page, size int) (*Page, error) {
	page, size = NormalizePage(page, size)

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, f, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:      items,
		Page:       page,
		PageSize:   size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
		TotalItems: total,
	}, nil
}

// GetBook returns a copy so callers cannot mutate the cached value.
func (s *Service) GetBook(ctx context.Context, id int64) (*Book, error) {
	if b, ok := s.cache.Get(id); ok {
		cp := *b
		return &cp, nil
	}
	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Add(id, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*Book)
	return &cp, nil
}

func (s *Service) Create(ctx context.Context, b *Book) (*Book, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.Category, _ = ParseCategory(string(b.Category))
	if _, err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, RKBookCreated, b.ID)
	return b, nil
}

func (s *Service) Update(ctx context.Context, b *Book) (*Book, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.Category, _ = ParseCategory(string(b.Category))
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.cache.Remove(b.ID)
	s.publish(ctx, RKBookUpdated, b.ID)
	return s.GetBook(ctx, b.ID)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.publish(ctx, RKBookDeleted, id)
	return nil
}

func (s *Service) publish(ctx context.Context, key string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, key, BookEvent{BookID: id}); err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Str("routing_key", key).Int64("book_id", id).Msg("catalog event not published")
	}
}
