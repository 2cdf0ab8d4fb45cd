package slugs

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// maxAttempts bounds the suffix search in Unique.
const maxAttempts = 50

// Make folds diacritics (đ becomes d), lowercases and joins words with hyphens.
func Make(title string) string {
	return slug.Make(strings.TrimSpace(title))
}

// Valid reports whether s is already in normalised form.
func Valid(s string) bool {
	return s != "" && slug.IsSlug(s)
}

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique derives a slug from title and appends -2, -3, ... until exists reports it free.
func Unique(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Make(title)
	if base == "" {
		return "", fmt.Errorf("cannot derive slug from %q", title)
	}
	candidate := base
	for i := 2; i <= maxAttempts+1; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}
