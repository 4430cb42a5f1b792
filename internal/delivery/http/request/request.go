package request

import "github.com/user/recipe-service/internal/entity"

type ParseRequest struct {
	URL          string `json:"url"`
	CollectionID string `json:"collection_id"`
}

type ApproveRequest struct {
	Edits *entity.RecipeEdits `json:"edits"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}
