package eval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// FileMatcher filters metadata trees by a boolean expression without
// touching the database.
type FileMatcher struct {
	ev *Evaluator
	// Workers bounds the goroutines used by Filter; zero or less means
	// one per file.
	Workers int
}

// NewFileMatcher returns a matcher using the default bindings.
func NewFileMatcher() *FileMatcher {
	return &FileMatcher{ev: New()}
}

// NewFileMatcherWith returns a matcher using ev.
func NewFileMatcherWith(ev *Evaluator) *FileMatcher {
	return &FileMatcher{ev: ev}
}

// Match reports whether e holds for the tree rooted at root. A null result
// does not match; any other non-bool result is a CodeTypeMismatch error.
func (m *FileMatcher) Match(root *oh5.Node, e expr.Expr) (bool, error) {
	v, err := m.ev.Evaluate(e, root)
	if err != nil {
		return false, err
	}
	lit, ok := v.(expr.LiteralExpr)
	if !ok {
		return false, errs.TypeMismatch("match: %s is not a boolean", v)
	}
	switch b := lit.Value.(type) {
	case oh5.Null:
		return false, nil
	case oh5.Bool:
		return bool(b), nil
	default:
		return false, errs.TypeMismatch("match: %s is not a boolean", v)
	}
}

// MatchFile is Match on the root of f.
func (m *FileMatcher) MatchFile(f *oh5.File, e expr.Expr) (bool, error) {
	return m.Match(f.Root(), e)
}

// Filter returns the files matching e, in input order. Files are matched
// concurrently; the first error cancels the remaining work.
func (m *FileMatcher) Filter(ctx context.Context, files []*oh5.File, e expr.Expr) ([]*oh5.File, error) {
	matched := make([]bool, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if m.Workers > 0 {
		g.SetLimit(m.Workers)
	}
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := m.MatchFile(f, e)
			if err != nil {
				return err
			}
			matched[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []*oh5.File
	for i, f := range files {
		if matched[i] {
			out = append(out, f)
		}
	}
	return out, nil
}
