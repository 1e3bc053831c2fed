package sdk

import (
	"context"
	"net/url"
	"strconv"
)

// SendMessage sends a message over HTTP; retrying with the same ClientMsgId returns the original
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*Message, error) {
	var result Message
	if err := c.post(ctx, "/msg/send", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendTextMessage is a convenience method to send a text message
func (c *Client) SendTextMessage(ctx context.Context, parentId, clientMsgId, text string) (*Message, error) {
	return c.SendMessage(ctx, &SendMessageRequest{
		ParentId:    parentId,
		ClientMsgId: clientMsgId,
		Type:        MsgTypeText,
		Content:     text,
	})
}

func pageParams(parentId, cursorKey string, cursor int64, limit int) url.Values {
	params := url.Values{}
	params.Set("parent_id", parentId)
	if cursor > 0 {
		params.Set(cursorKey, strconv.FormatInt(cursor, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

// History returns messages older than beforeId, newest first. beforeId 0 starts from the latest.
func (c *Client) History(ctx context.Context, parentId string, beforeId int64, limit int) (*HistoryPage, error) {
	var result HistoryPage
	if err := c.get(ctx, "/msg/history", pageParams(parentId, "before_id", beforeId, limit), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Sync returns messages newer than afterId, oldest first
func (c *Client) Sync(ctx context.Context, parentId string, afterId int64, limit int) (*SyncPage, error) {
	var result SyncPage
	if err := c.get(ctx, "/msg/sync", pageParams(parentId, "after_id", afterId, limit), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkRead advances the caller's read cursor in parentId
func (c *Client) MarkRead(ctx context.Context, parentId string, upToMessageId int64) (*UnreadInfo, error) {
	req := map[string]interface{}{
		"parent_id":        parentId,
		"up_to_message_id": upToMessageId,
	}
	var result UnreadInfo
	if err := c.post(ctx, "/msg/read", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUnreadCount returns the caller's unread count in parentId
func (c *Client) GetUnreadCount(ctx context.Context, parentId string) (int64, error) {
	params := url.Values{}
	params.Set("parent_id", parentId)
	var result UnreadInfo
	if err := c.get(ctx, "/msg/unread", params, &result); err != nil {
		return 0, err
	}
	return result.UnreadCount, nil
}
