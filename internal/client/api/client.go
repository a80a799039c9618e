package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/vidsync/pkg/api"
)

// ConflictError возвращается на 409: сервер отклонил запись.
// Retryable true - проигранная гонка коммита, можно повторить как есть;
// false - клиент причинно отстал и обязан перечитать состояние.
type ConflictError struct {
	ServerVectorClock api.VectorClock
	Message           string
	ServerVersion     int64
	Retryable         bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict (retryable=%v): %s", e.Retryable, e.Message)
}

// PartialSyncError возвращается, когда сервер прервал батч посреди
// применения: перечисленные операции уже закоммичены, остаток можно
// безопасно отправить повторно.
type PartialSyncError struct {
	Message   string
	Committed []api.Operation
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("sync partially applied (%d committed): %s", len(e.Committed), e.Message)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetToken устанавливает Bearer токен для последующих запросов
func (c *Client) SetToken(token string) {
	c.token = token
}

// CreateEntity создает новую запись метаданных
func (c *Client) CreateEntity(ctx context.Context, req api.CreateEntityRequest) (*api.MetadataRecord, error) {
	var resp api.MetadataRecord
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/entities", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("create entity request failed: %w", err)
	}
	return &resp, nil
}

// GetEntity получает текущий снимок записи метаданных
func (c *Client) GetEntity(ctx context.Context, entityID string) (*api.MetadataRecord, error) {
	var resp api.MetadataRecord
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/entities/"+url.PathEscape(entityID), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("get entity request failed: %w", err)
	}
	return &resp, nil
}

// UpdateEntity выполняет прямое обновление скалярных полей
func (c *Client) UpdateEntity(ctx context.Context, entityID string, req api.UpdateEntityRequest) (*api.MetadataRecord, error) {
	var resp api.MetadataRecord
	err := c.doRequest(ctx, http.MethodPut, "/api/v1/entities/"+url.PathEscape(entityID), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("update entity request failed: %w", err)
	}
	return &resp, nil
}

// Sync отправляет батч отложенных операций на сервер
func (c *Client) Sync(ctx context.Context, entityID string, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	path := "/api/v1/entities/" + url.PathEscape(entityID) + "/sync"
	err := c.doRequest(ctx, http.MethodPost, path, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return &resp, nil
}

// GetOperations получает журнал операций записи
func (c *Client) GetOperations(ctx context.Context, entityID string) (*api.OperationsResponse, error) {
	var resp api.OperationsResponse
	path := "/api/v1/entities/" + url.PathEscape(entityID) + "/operations"
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("get operations request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorFromResponse поднимает структурированные ошибки сервера до типов,
// по которым клиент может ветвиться через errors.As
func (c *Client) errorFromResponse(statusCode int, respBody []byte) error {
	if statusCode == http.StatusConflict {
		var conflict api.ConflictResponse
		if err := json.Unmarshal(respBody, &conflict); err == nil && conflict.Error != "" {
			return &ConflictError{
				Message:           conflict.Error,
				ServerVectorClock: conflict.ServerVectorClock,
				ServerVersion:     conflict.ServerVersion,
				Retryable:         conflict.Retryable,
			}
		}
	}

	if statusCode == http.StatusInternalServerError {
		var partial api.PartialSyncResponse
		if err := json.Unmarshal(respBody, &partial); err == nil && len(partial.CommittedOperations) > 0 {
			return &PartialSyncError{
				Message:   partial.Error,
				Committed: partial.CommittedOperations,
			}
		}
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server error (%d): %s", statusCode, errResp.Error)
	}

	return fmt.Errorf("request failed with status %d: %s", statusCode, string(respBody))
}
