package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	domainRepo "github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	defaultUsersPerPage = 200
	maxUserPages        = 50
)

// SupabaseUserDirectory resolves users through the Supabase Auth admin API
type SupabaseUserDirectory struct {
	client  *http.Client
	baseURL string
	apiKey  string
	perPage int
	logger  *zap.Logger
}

type adminUsersResponse struct {
	Users []entity.User `json:"users"`
}

// NewSupabaseUserDirectory creates a directory backed by the admin users
// endpoint. apiKey must be the service-role key.
func NewSupabaseUserDirectory(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) domainRepo.UserDirectory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseUserDirectory{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		perPage: defaultUsersPerPage,
		logger:  logger,
	}
}

// FindUserByEmail walks the admin users pages until an account with the
// same email (case-insensitive) is found or the listing ends. Hitting the
// page cap with full pages is an error, not a miss.
func (d *SupabaseUserDirectory) FindUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	if d.baseURL == "" || d.apiKey == "" {
		return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeUnavailable,
			"supabase project url or api key not configured", 0, nil)
	}

	target := strings.TrimSpace(email)
	if target == "" {
		return nil, nil
	}

	startTime := time.Now()
	for page := 1; page <= maxUserPages; page++ {
		users, err := d.listUsers(ctx, page)
		if err != nil {
			return nil, err
		}

		for i := range users {
			if strings.EqualFold(strings.TrimSpace(users[i].Email), target) {
				d.logger.Debug("Resolved user by email",
					zap.String("user_id", users[i].ID),
					zap.Int("page", page),
					zap.Duration("duration", time.Since(startTime)))
				return &users[i], nil
			}
		}

		if len(users) < d.perPage {
			d.logger.Info("No user found for email",
				zap.Int("pages", page),
				zap.Duration("duration", time.Since(startTime)))
			return nil, nil
		}
	}

	// The listing did not end within the page cap, so absence is unproven.
	d.logger.Error("Supabase user listing truncated",
		zap.Int("max_pages", maxUserPages),
		zap.Int("per_page", d.perPage),
		zap.Duration("duration", time.Since(startTime)))
	return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeTruncated,
		"user listing truncated before the email was found", 0, nil)
}

func (d *SupabaseUserDirectory) listUsers(ctx context.Context, page int) ([]entity.User, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(d.perPage))
	queryURL := fmt.Sprintf("%s/auth/v1/admin/users?%s", d.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeRequest,
			"failed to create request", 0, err)
	}

	req.Header.Set("apikey", d.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", d.apiKey))
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("Supabase admin users request failed",
			zap.Int("page", page),
			zap.Duration("request_duration", time.Since(requestStart)),
			zap.Error(err))
		return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeRequest,
			"http request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		d.logger.Warn("Supabase admin users returned non-200 status",
			zap.Int("page", page),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", errorBody))
		return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeStatus,
			"supabase admin users API error", resp.StatusCode, nil)
	}

	var body adminUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeDecode,
			"failed to decode response", 0, err)
	}

	return body.Users, nil
}
