// Package canvas provides a typed client for the subset of the Canvas LMS
// REST API that gradefix needs: listing assignments, quizzes and discussion
// topics of a course, walking their submissions, updating a single
// submission's late policy status and probing grading permissions.
//
// Lists are paginated with RFC 5988 Link headers. PageIterator pulls one
// page per call and Walk exposes the items as a lazy sequence; pages are
// always requested one after another because each next URL comes from the
// previous response.
//
// The client authenticates either with an API access token (Bearer) or
// with a browser session cookie. Session-authenticated writes must carry
// the page's CSRF token; without one they fail with ErrMissingCSRFToken
// before any request is made.
package canvas
