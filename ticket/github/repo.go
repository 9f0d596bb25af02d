package github

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRepoInvalid indicates a repository reference that is neither an
// "owner/repo" path nor a recognizable remote URL.
var ErrRepoInvalid = errors.New("invalid github repository reference")

// SplitRepo resolves a repository reference to owner and repo. It accepts
// bare "owner/repo" paths, HTTPS remotes like
// "https://github.com/owner/repo.git", and SSH remotes like
// "git@github.com:owner/repo.git".
func SplitRepo(ref string) (owner, repo string, err error) {
	if ref == "" {
		return "", "", ErrRepoInvalid
	}

	// SSH remotes: git@host:owner/repo.git
	if strings.HasPrefix(ref, "git@") {
		_, path, found := strings.Cut(ref, ":")
		if !found {
			return "", "", ErrRepoInvalid
		}
		ref = path
	}

	ref = strings.TrimPrefix(ref, "https://")
	ref = strings.TrimPrefix(ref, "http://")
	ref = strings.TrimSuffix(ref, ".git")
	ref = strings.Trim(ref, "/")

	parts := strings.Split(ref, "/")
	switch {
	case len(parts) == 2:
		// owner/repo
	case len(parts) > 2:
		// host/owner/repo, keep the last two
		parts = parts[len(parts)-2:]
	default:
		return "", "", ErrRepoInvalid
	}

	if parts[0] == "" || parts[1] == "" {
		return "", "", ErrRepoInvalid
	}
	return parts[0], parts[1], nil
}

// ParseIssueID splits an "owner/repo#number" ticket ID.
func ParseIssueID(id string) (owner, repo string, number int, err error) {
	path, num, found := strings.Cut(id, "#")
	if !found {
		return "", "", 0, fmt.Errorf("issue id %q: %w", id, ErrRepoInvalid)
	}

	owner, repo, err = SplitRepo(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("issue id %q: %w", id, err)
	}

	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("issue id %q: %w", id, ErrRepoInvalid)
	}
	return owner, repo, number, nil
}
