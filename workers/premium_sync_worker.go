// workers/premium_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"eduwave-game-service/models"
	"eduwave-game-service/utils"

	"gorm.io/gorm"
)

// PremiumSyncClient polls the billing service for subscription changes and
// mirrors the premium/trial flags onto game_users.
type PremiumSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

// SubscriptionChange matches the billing service's change feed entries.
type SubscriptionChange struct {
	ExternalUserID string     `json:"external_user_id"`
	IsPro          bool       `json:"is_pro"`
	TrialStartDate *time.Time `json:"trial_start_date,omitempty"`
	TrialExpired   bool       `json:"trial_expired"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewPremiumSyncClient(db *gorm.DB) *PremiumSyncClient {
	baseURL := os.Getenv("BILLING_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("BILLING_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("GAME_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("GAME_SERVICE_TOKEN environment variable is required for premium sync")
	}

	return &PremiumSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *PremiumSyncClient) GetChangedSubscriptions(ctx context.Context, since time.Time) ([]SubscriptionChange, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/internal/subscriptions", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call billing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("billing service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Subscriptions []SubscriptionChange `json:"subscriptions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode billing service response: %w", err)
	}

	return response.Subscriptions, nil
}

// PollSubscriptions persists premium flag changes to the local table. Users
// the sync worker has not mirrored yet are skipped; they pick up their flags
// on the next pass once the profile sync creates the row.
func PollSubscriptions(ctx context.Context, client *PremiumSyncClient, pollInterval time.Duration) {
	log.Println("💳 Starting premium subscription polling…")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Premium subscription polling stopped")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			changes, err := client.GetChangedSubscriptions(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling subscriptions: %v", err)
				continue
			}

			if len(changes) == 0 {
				continue
			}
			log.Printf("📥 Received %d subscription change(s) from billing service", len(changes))

			var updated, skipped int
			for _, change := range changes {
				result := client.DB.Model(&models.GameUser{}).
					Where("external_user_id = ?", change.ExternalUserID).
					Updates(map[string]interface{}{
						"is_pro":           change.IsPro,
						"trial_start_date": change.TrialStartDate,
						"trial_expired":    change.TrialExpired,
					})
				if result.Error != nil {
					log.Printf("⚠️ Failed to update premium flags for %s: %v", change.ExternalUserID, result.Error)
					continue
				}
				if result.RowsAffected == 0 {
					skipped++
					continue
				}
				updated++
			}

			log.Printf("✅ Premium sync: %d updated, %d not yet mirrored", updated, skipped)
			lastSyncTime = logTime
		}
	}
}
