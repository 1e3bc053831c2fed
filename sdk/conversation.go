package sdk

import (
	"context"
	"net/url"
	"strings"
)

// GetConversationList gets the caller's direct conversations, most recent activity first
func (c *Client) GetConversationList(ctx context.Context) ([]*Conversation, error) {
	var result []*Conversation
	if err := c.get(ctx, "/conversation/list", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// StartConversation opens the conversation with peerId in buildingId
func (c *Client) StartConversation(ctx context.Context, peerId, buildingId string) (*Conversation, error) {
	req := map[string]string{
		"peer_id":     peerId,
		"building_id": buildingId,
	}
	var result Conversation
	if err := c.post(ctx, "/conversation/start", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRoomList gets one room per building of the caller
func (c *Client) GetRoomList(ctx context.Context) ([]*Room, error) {
	var result []*Room
	if err := c.get(ctx, "/room/list", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetParticipants gets the participants of a room or conversation with their presence
func (c *Client) GetParticipants(ctx context.Context, parentId string) ([]*Presence, error) {
	params := url.Values{}
	params.Set("parent_id", parentId)
	var result []*Presence
	if err := c.get(ctx, "/room/participants", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPresence gets the presence of userIds
func (c *Client) GetPresence(ctx context.Context, userIds []string) ([]*Presence, error) {
	params := url.Values{}
	params.Set("user_ids", strings.Join(userIds, ","))
	var result []*Presence
	if err := c.get(ctx, "/presence", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
