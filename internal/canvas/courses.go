package canvas

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListAssignmentGroups lists the course's assignment groups with their
// assignments embedded.
func (client *Client) ListAssignmentGroups(courseID int64) *PageIterator[AssignmentGroup] {
	path := fmt.Sprintf("/api/v1/courses/%d/assignment_groups?include[]=assignments"+
		"&exclude_response_fields[]=rubric&exclude_response_fields[]=description"+
		"&override_assignment_dates=false", courseID)
	return list[AssignmentGroup](client, path)
}

// ListQuizzes lists the course's quizzes.
func (client *Client) ListQuizzes(courseID int64) *PageIterator[Quiz] {
	return list[Quiz](client, fmt.Sprintf("/api/v1/courses/%d/quizzes?per_page=100", courseID))
}

// ListDiscussionTopics lists the course's discussion topics.
func (client *Client) ListDiscussionTopics(courseID int64) *PageIterator[DiscussionTopic] {
	path := fmt.Sprintf("/api/v1/courses/%d/discussion_topics?exclude_assignment_descriptions=true"+
		"&plain_messages=true&per_page=100", courseID)
	return list[DiscussionTopic](client, path)
}

// Assignment fetches one assignment as a single-page list.
func (client *Client) Assignment(courseID, assignmentID int64) *PageIterator[Assignment] {
	return list[Assignment](client, fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID))
}

// Quiz fetches one quiz as a single-page list.
func (client *Client) Quiz(courseID, quizID int64) *PageIterator[Quiz] {
	return list[Quiz](client, fmt.Sprintf("/api/v1/courses/%d/quizzes/%d", courseID, quizID))
}

// DiscussionTopic fetches one discussion topic as a single-page list.
func (client *Client) DiscussionTopic(courseID, topicID int64) *PageIterator[DiscussionTopic] {
	return list[DiscussionTopic](client, fmt.Sprintf("/api/v1/courses/%d/discussion_topics/%d", courseID, topicID))
}

// ListSubmissions lists every submission of one assignment, including
// submission history and the assignment itself (for points possible).
func (client *Client) ListSubmissions(courseID, assignmentID int64) *PageIterator[Submission] {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions"+
		"?include[]=submission_history&include[]=assignment&per_page=100", courseID, assignmentID)
	return list[Submission](client, path)
}

// ListStudentSubmissions lists the submissions of all active students for
// several assignments at once, leaving out large response fields.
func (client *Client) ListStudentSubmissions(courseID int64, assignmentIDs []int64) *PageIterator[Submission] {
	query := url.Values{}
	query.Set("enrollment_state", "active")
	query.Set("per_page", "40")
	query.Add("student_ids[]", "all")
	for _, field := range []string{"attachments", "discussion_entries", "preview_url"} {
		query.Add("exclude_response_fields[]", field)
	}
	for _, id := range assignmentIDs {
		query.Add("assignment_ids[]", strconv.FormatInt(id, 10))
	}
	path := fmt.Sprintf("/api/v1/courses/%d/students/submissions?%s", courseID, query.Encode())
	return list[Submission](client, path)
}

// UpdateSubmission updates the submission of userID for assignmentID and
// returns the host's updated copy.
func (client *Client) UpdateSubmission(ctx context.Context, courseID, assignmentID, userID int64, update SubmissionUpdate) (*Submission, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, userID)
	var updated Submission
	if err := client.put(ctx, path, update, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CheckWritePermission reports whether the caller may change grades in the
// course. It is a read-only request.
func (client *Client) CheckWritePermission(ctx context.Context, courseID int64) (bool, error) {
	var permissions map[string]bool
	path := fmt.Sprintf("/api/v1/courses/%d/permissions?permissions[]=manage_grades", courseID)
	if err := client.get(ctx, path, &permissions); err != nil {
		return false, err
	}
	return permissions["manage_grades"], nil
}
