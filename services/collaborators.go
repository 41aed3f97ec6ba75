package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"eduwave-game-service/utils"
)

// HTTP clients for the collaborating platform services. Course and forum data
// live in their owning services; this service only reads what badge
// predicates need, authenticated service-to-service with X-Service-Token.

// NotificationClient delivers user notifications through the notification
// service. Fire-and-forget: failures are logged, never returned.
type NotificationClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotificationClient(baseURL, token string) *NotificationClient {
	return &NotificationClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

func (c *NotificationClient) Notify(externalUserID, title, message, link string) {
	if c.BaseURL == "" {
		return
	}
	go func() {
		reqBody := map[string]interface{}{
			"user_id": externalUserID,
			"title":   title,
			"message": message,
			"link":    link,
			"type":    "badge",
		}
		jsonData, _ := json.Marshal(reqBody)

		req, err := http.NewRequest("POST", fmt.Sprintf("%s/internal/notifications", c.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			log.Printf("⚠️ [NOTIFY] build request failed: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Service-Token", c.Token)

		resp, err := c.Client.Do(req)
		if err != nil {
			log.Printf("⚠️ [NOTIFY] send failed for %s: %v", externalUserID, err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 300 {
			log.Printf("⚠️ [NOTIFY] notification service returned %d for %s", resp.StatusCode, externalUserID)
		}
	}()
}

// ForumClient reads forum aggregates from the forum service.
type ForumClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewForumClient(baseURL, token string) *ForumClient {
	return &ForumClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

type forumStatsResponse struct {
	MaxPostVotes   int `json:"max_post_votes"`
	MaxPostReplies int `json:"max_post_replies"`
}

func (c *ForumClient) stats(ctx context.Context, externalUserID string) (*forumStatsResponse, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%s/stats", c.BaseURL, url.PathEscape(externalUserID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("ForumService stats returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("forum stats failed: %d", resp.StatusCode)
	}

	var out forumStatsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ForumClient) MaxPostVotes(ctx context.Context, externalUserID string) (int, error) {
	stats, err := c.stats(ctx, externalUserID)
	if err != nil {
		return 0, err
	}
	return stats.MaxPostVotes, nil
}

func (c *ForumClient) MaxPostReplies(ctx context.Context, externalUserID string) (int, error) {
	stats, err := c.stats(ctx, externalUserID)
	if err != nil {
		return 0, err
	}
	return stats.MaxPostReplies, nil
}

// CourseClient reads course-progress aggregates from the course service.
type CourseClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewCourseClient(baseURL, token string) *CourseClient {
	return &CourseClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

func (c *CourseClient) CompletedCourses(ctx context.Context, externalUserID string) (int, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%s/completed-count", c.BaseURL, url.PathEscape(externalUserID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("CourseService completed-count returned %d: %s", resp.StatusCode, string(body))
		return 0, fmt.Errorf("course count failed: %d", resp.StatusCode)
	}

	var out struct {
		Completed int `json:"completed"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, err
	}
	return out.Completed, nil
}

func (c *CourseClient) FirstInteraction(ctx context.Context, externalUserID, courseID string) (time.Time, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%s/courses/%s/first-interaction",
		c.BaseURL, url.PathEscape(externalUserID), url.PathEscape(courseID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return time.Time{}, nil // never touched the course
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("CourseService first-interaction returned %d: %s", resp.StatusCode, string(body))
		return time.Time{}, fmt.Errorf("course first-interaction failed: %d", resp.StatusCode)
	}

	var out struct {
		FirstInteraction time.Time `json:"first_interaction"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return time.Time{}, err
	}
	return out.FirstInteraction, nil
}
