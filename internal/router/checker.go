package router

import (
	"context"
	"fmt"
	"io/fs"
)

// IndexChecker reports whether the SPA shell is present and is a regular file.
type IndexChecker struct {
	Resolver *Resolver
}

func (c IndexChecker) Check(_ context.Context) error {
	info, err := fs.Stat(c.Resolver.root, c.Resolver.index)
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.Resolver.index, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", c.Resolver.index)
	}
	return nil
}
