package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"

	"github.com/myrjola/burnplan/internal/catalog"
	"github.com/myrjola/burnplan/internal/testhelpers"
	"github.com/myrjola/burnplan/internal/workout"
)

func TestTableEstimator(t *testing.T) {
	tests := []struct {
		area workout.BodyArea
		want float64
	}{
		{area: workout.AreaCardio, want: 7},
		{area: workout.AreaFullBody, want: 6},
		{area: workout.AreaLower, want: 5},
		{area: workout.AreaUpper, want: 4},
		{area: workout.AreaCore, want: 3.8},
		{area: "Neck", want: 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.area), func(t *testing.T) {
			got, err := catalog.TableEstimator{}.EstimateMET(t.Context(), workout.Exercise{Name: "x", Area: tt.area})
			if err != nil || got != tt.want {
				t.Errorf("EstimateMET() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

// completionServer answers every chat completion with content.
func completionServer(t *testing.T, status int, content string) (*httptest.Server, <-chan string) {
	t.Helper()
	prompts := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		prompts <- string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"message":"unavailable","type":"server_error"}}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": %q}}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 2, "total_tokens": 42}
		}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv, prompts
}

func TestOpenAIEstimator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		want    float64
		wantErr bool
	}{
		{name: "number", status: http.StatusOK, content: "6.5", want: 6.5},
		{name: "padded number", status: http.StatusOK, content: " 8\n", want: 8},
		{name: "prose", status: http.StatusOK, content: "about six", wantErr: true},
		{name: "out of range", status: http.StatusOK, content: "42", wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, prompts := completionServer(t, tt.status, tt.content)
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			estimator := catalog.NewOpenAIEstimator("test-key", logger,
				option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

			got, err := estimator.EstimateMET(t.Context(), workout.Exercise{
				Name: "Sled Push", Area: workout.AreaFullBody, Equipment: "sled", Kind: workout.KindDuration,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("EstimateMET() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("EstimateMET() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EstimateMET() = %v, want %v", got, tt.want)
			}
			if prompt := <-prompts; !strings.Contains(prompt, "Sled Push") {
				t.Errorf("request did not describe the exercise: %s", prompt)
			}
		})
	}
}

type failingEstimator struct{ err error }

func (e failingEstimator) EstimateMET(context.Context, workout.Exercise) (float64, error) {
	return 0, e.err
}

func TestChain(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	errDown := errors.New("down")
	ex := workout.Exercise{Name: "Sled Push", Area: workout.AreaFullBody}

	got, err := catalog.NewChain(logger, failingEstimator{err: errDown}, catalog.TableEstimator{}).EstimateMET(
		t.Context(), ex)
	if err != nil || got != 6 {
		t.Errorf("fallback EstimateMET() = %v, %v; want 6", got, err)
	}

	_, err = catalog.NewChain(logger, failingEstimator{err: errDown}, &countingEstimator{met: 0}).EstimateMET(
		t.Context(), ex)
	if !errors.Is(err, errDown) {
		t.Errorf("EstimateMET() error = %v, want %v", err, errDown)
	}
}
