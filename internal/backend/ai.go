package backend

import (
	"context"
	"net/http"
)

// ChatTurn is one message of an assistant conversation.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ChatRequest is the assistant chat body.
type ChatRequest struct {
	Message             string     `json:"message" validate:"required,max=2000"`
	ConversationHistory []ChatTurn `json:"conversationHistory" validate:"max=50,dive"`
}

func (a *API) Chat(ctx context.Context, in ChatRequest) (*Envelope, error) {
	if in.ConversationHistory == nil {
		in.ConversationHistory = []ChatTurn{}
	}
	return a.sendJSON(ctx, http.MethodPost, "/admin/ai-suggestions/chat", in)
}

// ValidateIdea asks the assistant to assess a business type idea.
func (a *API) ValidateIdea(ctx context.Context, idea string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, "/admin/ai-suggestions/validate",
		map[string]string{"businessIdea": idea})
}

func (a *API) ExpandCategories(ctx context.Context, businessTypeID, businessTypeName string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, "/admin/ai-suggestions/expand-categories",
		map[string]string{"businessTypeId": businessTypeID, "businessTypeName": businessTypeName})
}

func (a *API) Trending(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/ai-suggestions/trending", nil)
}

func (a *API) AIHealth(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/ai-suggestions/health", nil)
}
