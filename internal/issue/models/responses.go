package models

const (
	MessageCreated = "Issue created successfully"
	MessageUpdated = "Issue updated successfully"
	MessageDeleted = "Issue deleted successfully"
)

type ListResponse struct {
	Issues     []View     `json:"issues"`
	Pagination Pagination `json:"pagination"`
}

// MutationResponse carries the confirmation message; Issue is omitted on
// delete.
type MutationResponse struct {
	Message string `json:"message"`
	Issue   *View  `json:"issue,omitempty"`
}

func (r ListResult) Response() ListResponse {
	views := make([]View, len(r.Issues))
	for i, rec := range r.Issues {
		views[i] = rec.View()
	}
	return ListResponse{Issues: views, Pagination: r.Pagination}
}
