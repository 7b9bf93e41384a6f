package git

import (
	"sort"
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/version"
)

// RemoteTag is one semver-parseable tag from ls-remote output.
type RemoteTag struct {
	Name    string // tag name as published, e.g. "v1.2.0"
	Commit  string // SHA (deref commit for annotated tags)
	Version version.Version
}

// StripVPrefix removes a leading 'v' or 'V' from a tag name.
func StripVPrefix(tag string) string {
	if len(tag) > 0 && (tag[0] == 'v' || tag[0] == 'V') {
		return tag[1:]
	}
	return tag
}

// ParseLsRemoteTags parses `git ls-remote --tags` output. Lines are
// "<sha>\trefs/tags/<name>", with annotated tags also listing a
// "<name>^{}" deref line whose SHA is the underlying commit; the deref SHA
// wins. Tag names that do not parse as versions (after stripping a leading
// v/V) are silently skipped. The result is sorted by version descending.
func ParseLsRemoteTags(output string) ([]RemoteTag, error) {
	type rawTag struct {
		sha     string
		isDeref bool
	}

	shaByName := make(map[string]string)
	order := []string{}

	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		sha := line[:tab]
		ref := line[tab+1:]

		const prefix = "refs/tags/"
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		name := ref[len(prefix):]

		raw := rawTag{sha: sha}
		if strings.HasSuffix(name, "^{}") {
			name = name[:len(name)-3]
			raw.isDeref = true
		}

		if _, seen := shaByName[name]; !seen {
			shaByName[name] = raw.sha
			order = append(order, name)
		} else if raw.isDeref {
			shaByName[name] = raw.sha
		}
	}

	var tags []RemoteTag
	for _, name := range order {
		v, err := version.Parse(StripVPrefix(name))
		if err != nil {
			continue
		}
		tags = append(tags, RemoteTag{Name: name, Commit: shaByName[name], Version: v})
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[j].Version.Less(tags[i].Version)
	})
	return tags, nil
}

// ResolveVersionFromTags picks the highest tag satisfying req. Tags must
// already be sorted descending, as ParseLsRemoteTags returns them.
func ResolveVersionFromTags(tags []RemoteTag, req version.Req) (RemoteTag, error) {
	for _, tag := range tags {
		if req.Matches(tag.Version) {
			return tag, nil
		}
	}
	return RemoteTag{}, errors.Newf(errors.Version,
		"no tag matches version requirement '%s'", req.String())
}
