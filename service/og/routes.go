package og

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flashnews-app/flashnews-server/cmd/utils"
	"github.com/gorilla/mux"
	"golang.org/x/net/html"
)

type Handler struct {
	client *http.Client
}

func NewHandler() *Handler {
	return &Handler{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/og", h.Scrape).Methods("POST")
}

// Scrape fetches a URL and returns its OpenGraph tags so the client can
// prefill article metadata before posting. Unauthenticated on purpose.
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL == "" {
		utils.WriteError(w, http.StatusBadRequest, "No URL provided")
		return
	}

	ogData, err := h.parseOpenGraphTags(req.URL)
	if err != nil {
		utils.WriteError(w, http.StatusForbidden, "Could not parse OpenGraph link")
		return
	}

	if len(ogData) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid link or OpenGraph data")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "OpenGraph data retrieved successfully", ogData)
}

// parseOpenGraphTags collects og:* meta properties from the page head.
func (h *Handler) parseOpenGraphTags(url string) (map[string]string, error) {
	resp, err := h.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ogData := map[string]string{}

	tokenizer := html.NewTokenizer(resp.Body)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// End of document; whatever was collected is the result.
			return ogData, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "meta" {
				// OpenGraph tags live in the head; stop at the body.
				if token.Data == "body" {
					return ogData, nil
				}
				continue
			}

			var property, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}

			if strings.HasPrefix(property, "og:") && content != "" {
				ogData[strings.TrimPrefix(property, "og:")] = content
			}
		}
	}
}
