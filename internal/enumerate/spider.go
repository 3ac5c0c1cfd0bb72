package enumerate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kpcyrd/brchd/internal/task"
)

// Spider breadth-first crawls an HTTP directory listing rooted at
// rawRootURL (which must end in "/"), pushing a RemoteUrl task for every
// leaf link found. Grounded on original_source/src/spider/mod.rs: each
// visited node's own URL is the prefix a link must fall under to be
// followed (not the original root), while the pushed task's path is the
// suffix after the original root. The child-link check uses structural
// URL comparison instead of the source's raw string prefix, per the
// spec's noted "https://host/a vs https://host/ab/" ambiguity.
func Spider(ctx context.Context, client *http.Client, rawRootURL string, push func(task.Task) error) error {
	root, err := url.Parse(rawRootURL)
	if err != nil {
		return fmt.Errorf("parsing %s as url: %w", rawRootURL, err)
	}

	pending := []*url.URL{root}

	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]

		links, err := fetchLinks(ctx, client, current)
		if err != nil {
			return err
		}

		for _, href := range links {
			resolved, err := current.Parse(href)
			if err != nil {
				continue // malformed href: skip, not fatal
			}

			if !isStructuralChild(current, resolved) {
				continue
			}

			if strings.HasSuffix(resolved.Path, "/") {
				pending = append(pending, resolved)
				continue
			}

			relPath := strings.TrimPrefix(resolved.String(), root.String())
			if err := push(task.NewRemoteURL(relPath, resolved.String())); err != nil {
				return err
			}
		}
	}

	return nil
}

func fetchLinks(ctx context.Context, client *http.Client, target *url.URL) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", target, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", target, resp.Status)
	}

	return extractLinks(resp.Body)
}

// isStructuralChild reports whether resolved names something strictly
// under current: same scheme and host, and resolved's path segments start
// with all of current's path segments.
func isStructuralChild(current, resolved *url.URL) bool {
	if resolved.Scheme != current.Scheme || resolved.Host != current.Host {
		return false
	}
	if resolved.String() == current.String() {
		return false
	}

	curSegs := pathSegments(current.Path)
	resSegs := pathSegments(resolved.Path)
	if len(resSegs) < len(curSegs) {
		return false
	}
	for i, seg := range curSegs {
		if resSegs[i] != seg {
			return false
		}
	}
	return true
}

func pathSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
