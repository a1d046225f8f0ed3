// Package pipeline contains the fetch-evaluate-update pipeline that clears
// late and missing flags on a course's submissions.
package pipeline

import (
	"fmt"
	"slices"
	"time"

	"gradefix/internal/canvas"
)

// ListKind selects which list of gradable items a run walks.
type ListKind int

const (
	Assignments ListKind = iota + 1
	Quizzes
	DiscussionTopics
)

func (k ListKind) String() string {
	switch k {
	case Assignments:
		return "assignments"
	case Quizzes:
		return "quizzes"
	case DiscussionTopics:
		return "discussion_topics"
	default:
		return fmt.Sprintf("ListKind(%d)", int(k))
	}
}

// ParseListKind parses the path segment used by Canvas for a list kind.
func ParseListKind(s string) (ListKind, error) {
	switch s {
	case "assignments":
		return Assignments, nil
	case "quizzes":
		return Quizzes, nil
	case "discussion_topics":
		return DiscussionTopics, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q (want assignments, quizzes or discussion_topics)", s)
	}
}

// Item is a gradable item normalised from the host's list records.
type Item struct {
	Kind      ListKind
	ID        int64
	Published bool
	DueAt     *time.Time
	// AssignmentID links quizzes and discussion topics to the assignment
	// holding their submissions. Zero when absent.
	AssignmentID    int64
	SubmissionTypes []string
}

func itemFromAssignment(a canvas.Assignment) Item {
	return Item{
		Kind:            Assignments,
		ID:              a.ID,
		Published:       a.Published,
		DueAt:           a.DueAt,
		AssignmentID:    a.ID,
		SubmissionTypes: a.SubmissionTypes,
	}
}

func itemFromQuiz(q canvas.Quiz) Item {
	return Item{
		Kind:         Quizzes,
		ID:           q.ID,
		Published:    q.Published,
		DueAt:        q.DueAt,
		AssignmentID: q.AssignmentID,
	}
}

func itemFromDiscussionTopic(d canvas.DiscussionTopic) Item {
	item := Item{
		Kind:         DiscussionTopics,
		ID:           d.ID,
		Published:    d.Published,
		AssignmentID: d.AssignmentID,
	}
	if d.Assignment != nil {
		item.DueAt = d.Assignment.DueAt
		item.SubmissionTypes = d.Assignment.SubmissionTypes
		if item.AssignmentID == 0 {
			item.AssignmentID = d.Assignment.ID
		}
	}
	return item
}

// nonGradableSubmissionTypes never produce submissions worth correcting.
var nonGradableSubmissionTypes = []string{"none", "not_graded", "on_paper", "wiki_page", "external_tool"}

// Filter decides which items a run processes.
type Filter struct {
	// RequestedID restricts the run to one item. Zero means all items.
	RequestedID int64

	// StrictSubmissionTypes also rejects items with a non-gradable
	// submission type.
	StrictSubmissionTypes bool
}

// Eligible reports whether item should be processed and returns the id to
// query: the item id for assignments and quizzes, the linked assignment id
// for discussion topics.
func (f Filter) Eligible(item Item) (int64, bool) {
	if !item.Published || item.DueAt == nil {
		return 0, false
	}
	if f.RequestedID != 0 && item.ID != f.RequestedID {
		return 0, false
	}
	if f.StrictSubmissionTypes && slices.ContainsFunc(item.SubmissionTypes, func(t string) bool {
		return slices.Contains(nonGradableSubmissionTypes, t)
	}) {
		return 0, false
	}

	switch item.Kind {
	case DiscussionTopics:
		if item.AssignmentID == 0 {
			return 0, false
		}
		return item.AssignmentID, true
	default:
		return item.ID, true
	}
}

// submissionAssignmentID resolves the assignment whose submissions belong
// to item. Quizzes without a linked assignment have none.
func (item Item) submissionAssignmentID() (int64, bool) {
	switch item.Kind {
	case Assignments:
		return item.ID, true
	default:
		return item.AssignmentID, item.AssignmentID != 0
	}
}
