package pipeline

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Target is what a course page URL points at.
type Target struct {
	CourseID int64
	// Kind is zero when the URL names only the course.
	Kind   ListKind
	ItemID int64
}

var coursePath = regexp.MustCompile(`^/courses/(\d+)(?:/(assignments|quizzes|discussion_topics)(?:/(\d+))?(?:/edit)?)?/?$`)

// ParseTarget accepts a numeric course id, a course page path such as
// /courses/12/quizzes/34/edit, or the full URL of such a page.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("empty course reference")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return Target{}, fmt.Errorf("invalid course id %d", id)
		}
		return Target{CourseID: id}, nil
	}

	path := s
	if strings.Contains(s, "://") {
		parsed, err := url.Parse(s)
		if err != nil {
			return Target{}, fmt.Errorf("invalid course URL %q: %w", s, err)
		}
		path = parsed.Path
	}

	match := coursePath.FindStringSubmatch(path)
	if match == nil {
		return Target{}, fmt.Errorf("%q is not a course, assignment, quiz or discussion page", s)
	}

	var target Target
	target.CourseID, _ = strconv.ParseInt(match[1], 10, 64)
	if match[2] != "" {
		target.Kind, _ = ParseListKind(match[2])
	}
	if match[3] != "" {
		target.ItemID, _ = strconv.ParseInt(match[3], 10, 64)
	}
	return target, nil
}
