package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"strings"
)

// PageFunc fetches the page at url and returns its items together with the
// URL of the following page, or "" when the page is the last one.
type PageFunc[T any] func(ctx context.Context, url string) (items []T, next string, err error)

// PageIterator lazily fetches pages from a paginated endpoint. Each call to
// Next fetches exactly one page. Returns nil, nil once the last page has
// been consumed.
//
// The iterator is not safe for concurrent use and cannot be rewound; start
// a new iterator to walk the list again.
type PageIterator[T any] struct {
	fetch   PageFunc[T]
	nextURL string
	done    bool
}

// NewPageIterator returns an iterator that starts at startURL.
func NewPageIterator[T any](startURL string, fetch PageFunc[T]) *PageIterator[T] {
	return &PageIterator[T]{fetch: fetch, nextURL: startURL}
}

// Next fetches the next page. A failed fetch ends the iteration: the error
// is returned and subsequent calls return nil, nil.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	items, next, err := iterator.fetch(ctx, iterator.nextURL)
	if err != nil {
		iterator.done = true
		return nil, err
	}

	iterator.nextURL = next
	if next == "" {
		iterator.done = true
	}

	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Collect fetches all remaining pages and returns the items concatenated.
// On error the items gathered so far are returned alongside it.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for item, err := range Walk(ctx, iterator) {
		if err != nil {
			return all, err
		}
		all = append(all, item)
	}
	return all, nil
}

// Walk yields every item of every remaining page in order. The next page is
// requested only after the consumer has taken all items of the current one.
// A page failure is yielded once as the final element.
func Walk[T any](ctx context.Context, iterator *PageIterator[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			items, err := iterator.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if items == nil {
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// decodeList decodes a list response. Single-item endpoints answer with an
// object instead of an array; that object becomes a one-element page.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedShape
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var item T
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, err
		}
		return []T{item}, nil
	default:
		return nil, ErrUnexpectedShape
	}
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link
// header. Returns "" if the header is empty or has no next relation.
//
// Format: <https://canvas.example.edu/api/v1/...&page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)

		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		urlPart := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(urlPart, "<") || !strings.HasSuffix(urlPart, ">") {
			continue
		}

		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "rel" {
				continue
			}
			if strings.Trim(strings.TrimSpace(value), `"`) == "next" {
				return urlPart[1 : len(urlPart)-1]
			}
		}
	}

	return ""
}
