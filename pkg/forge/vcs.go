package forge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var githubRE = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ResolveVCS fetches dependency metadata from a version-control
// repository at the given ref. The repository is expected to publish a
// metadata.json at its root, the way registry modules do.
//
// An empty ref reads the repository default branch.
func (c *Client) ResolveVCS(ctx context.Context, repoURL, ref string) (*VCSMetadata, error) {
	raw, err := metadataURL(repoURL, ref)
	if err != nil {
		return nil, err
	}

	var meta VCSMetadata
	key := fmt.Sprintf("vcs:%s@%s", repoURL, ref)
	err = c.cached(ctx, key, &meta, func() error {
		return c.getJSON(ctx, raw, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// metadataURL maps a repository URL and ref to the raw metadata.json
// location. GitHub repositories use the raw content host; anything
// else falls back to the common "<repo>/raw/<ref>/..." layout.
func metadataURL(repoURL, ref string) (string, error) {
	if repoURL == "" {
		return "", fmt.Errorf("%w: empty repository URL", ErrNotFound)
	}
	if ref == "" {
		ref = "HEAD"
	}
	if m := githubRE.FindStringSubmatch(repoURL); m != nil {
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/metadata.json", m[1], m[2], ref), nil
	}
	return fmt.Sprintf("%s/raw/%s/metadata.json", strings.TrimSuffix(repoURL, "/"), ref), nil
}

// RefPreference picks the ref used for a VCS lookup: an explicit tag
// wins over a branch/commit ref.
func RefPreference(tag, ref string) string {
	if tag != "" {
		return tag
	}
	return ref
}
