package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	gitLabMRRegex = regexp.MustCompile(`^(?:https?://)?[^/]+/(.+?)/-/merge_requests/(\d+)$`)
	gitHubPRRegex = regexp.MustCompile(`^(?:https?://)?github\.com/([^/]+/[^/]+)/pull/(\d+)$`)
)

// ParseMergeRequestURL extracts the project path and MR number from a merge
// request web URL.
// Supported formats:
//
//	https://gitlab.example.com/{group}/{project}/-/merge_requests/{iid}
//	https://github.com/{owner}/{repo}/pull/{number}
func ParseMergeRequestURL(url string) (project string, iid int, err error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")

	matches := gitHubPRRegex.FindStringSubmatch(url)
	if matches == nil {
		matches = gitLabMRRegex.FindStringSubmatch(url)
	}
	if len(matches) != 3 {
		return "", 0, fmt.Errorf("invalid merge request URL format: %s", url)
	}

	iid, err = strconv.Atoi(matches[2])
	if err != nil || iid <= 0 {
		return "", 0, fmt.Errorf("invalid merge request number '%s'", matches[2])
	}
	return matches[1], iid, nil
}
