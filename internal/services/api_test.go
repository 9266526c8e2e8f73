package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/desertthunder/pitch/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com", customClient)

			assert.Equal(t, "http://example.com", srv.baseURL)
			assert.Same(t, customClient, srv.httpClient)
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)
			assert.Equal(t, "http://127.0.0.1:5000", srv.baseURL)
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			assert.Same(t, http.DefaultClient, srv.httpClient)
		})
	})

	t.Run("Response Handling", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				assert.Equal(t, "/health", r.URL.Path)

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Post(context.Background(), "/health", []byte("{}"))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, resp.IsJSON)
			assert.True(t, resp.OK())
			assert.Equal(t, map[string]any{"status": "ok"}, resp.JSONData)
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Post(context.Background(), "/test", []byte("{}"))
			require.NoError(t, err)
			assert.False(t, resp.IsJSON)
			assert.Nil(t, resp.JSONData)
			assert.Equal(t, "plain text response", string(resp.Body))
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil).Post(context.Background(), "/test\x00invalid", []byte("{}"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to create request")
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			_, err := NewAPIService("http://example.com", client).Post(context.Background(), "/test", []byte("{}"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to read response")
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := NewAPIService(server.URL, nil).Post(ctx, "/test", []byte("{}"))
			assert.Error(t, err)
		})

		t.Run("Request Timeout Applies", func(t *testing.T) {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer server.Close()
			defer close(release)

			srv := NewAPIService(server.URL, nil).WithTimeout(20 * time.Millisecond)
			_, err := srv.Post(context.Background(), "/slow", []byte("{}"))
			require.Error(t, err)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Sends JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var data map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&data))
				assert.Equal(t, "data", data["test"])

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"id": "123"})
			}))
			defer server.Close()

			requestData, _ := json.Marshal(map[string]string{"test": "data"})
			resp, err := NewAPIService(server.URL, nil).Post(context.Background(), "/test", requestData)
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.True(t, resp.IsJSON)
		})

		t.Run("Non-2xx Is Not An Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"boom"}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Post(context.Background(), "/test", []byte("{}"))
			require.NoError(t, err)
			assert.False(t, resp.OK())
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			_, err := NewAPIService("http://example.com", client).Post(context.Background(), "/test", []byte("data"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "request failed")
		})
	})

	t.Run("PostStream", func(t *testing.T) {
		t.Run("Returns Unread Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
				w.Header().Set("Content-Type", "text/event-stream")
				io.WriteString(w, "data: one\n\n")
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).PostStream(context.Background(), "/send", []byte("{}"))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "data: one\n\n", string(body))
		})

		t.Run("Ignores Request Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.(http.Flusher).Flush()
				time.Sleep(50 * time.Millisecond)
				io.WriteString(w, "data: late\n\n")
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil).WithTimeout(10 * time.Millisecond)
			resp, err := srv.PostStream(context.Background(), "/send", []byte("{}"))
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "data: late\n\n", string(body))
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

			_, err := NewAPIService("http://example.com", client).PostStream(context.Background(), "/send", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "connection refused")
		})
	})

	t.Run("Upload", func(t *testing.T) {
		t.Run("Sends Multipart File", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

				file, header, err := r.FormFile("playlist_file")
				if !assert.NoError(t, err) {
					return
				}
				defer file.Close()

				content, _ := io.ReadAll(file)
				assert.Equal(t, "curators.xlsx", header.Filename)
				assert.Equal(t, "sheet-bytes", string(content))

				w.Write([]byte(`{"playlists":[]}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Upload(
				context.Background(), "/upload", "playlist_file", "curators.xlsx", strings.NewReader("sheet-bytes"),
			)
			require.NoError(t, err)
			assert.True(t, resp.OK())
			assert.True(t, resp.IsJSON)
		})

		t.Run("Failed Source Read", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil).Upload(
				context.Background(), "/upload", "playlist_file", "x.xlsx", &tu.FCloser{},
			)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to read upload")
		})
	})
}
