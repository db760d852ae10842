package proxy

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/processor"
	"github.com/ZaguanLabs/mirrorlai/provider"
	"github.com/gin-gonic/gin"
)

// Error messages of the endpoint contract.
const (
	msgUnavailable = "Translation unavailable."
	msgTooLarge    = "Payload too large."
	msgBadRequest  = "Invalid request body."
	msgFailed      = "Translation failed."
)

var (
	errUnavailable = errors.New("no translation backend configured")
	errTooLarge    = errors.New("batch exceeds endpoint limits")
)

// translate serves POST /api/translate.
func (s *Server) translate(c *gin.Context) {
	if s.backend == nil {
		c.JSON(http.StatusServiceUnavailable, provider.ErrorResponseBody{Error: msgUnavailable})
		return
	}

	var body provider.TranslateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponseBody{Error: msgBadRequest})
		return
	}

	translations, err := s.translateStrings(c.Request.Context(), body.Strings)
	switch {
	case errors.Is(err, errTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, provider.ErrorResponseBody{Error: msgTooLarge})
		return
	case err != nil:
		requestLog(c).Warn("translation of %d strings failed: %v", len(body.Strings), err)
		c.JSON(http.StatusBadGateway, provider.ErrorResponseBody{Error: msgFailed})
		return
	}

	c.JSON(http.StatusOK, provider.TranslateResponseBody{Translations: translations})
}

// translateStrings implements the endpoint contract for one batch. Strings
// are trimmed before lookup and translation and get their surrounding
// whitespace back afterwards; blank strings are echoed in place. Only cache
// misses reach the backend, and their results are stored for every caller.
//
// The server-side pipeline calls this directly as its BatchTranslator.
func (s *Server) translateStrings(ctx context.Context, strs []string) ([]string, error) {
	if s.backend == nil {
		return nil, errUnavailable
	}
	if len(strs) == 0 {
		return []string{}, nil
	}
	if len(strs) > s.cfg.Translation.ServerMaxStrings {
		return nil, errTooLarge
	}

	trimmed := make([]string, len(strs))
	var sources []string
	chars := 0
	for i, str := range strs {
		trimmed[i] = strings.TrimSpace(str)
		if trimmed[i] == "" {
			continue
		}
		chars += utf8.RuneCountInString(trimmed[i])
		sources = append(sources, trimmed[i])
	}
	if chars > s.cfg.Translation.ServerMaxChars {
		return nil, errTooLarge
	}

	target := s.cfg.Locale.Target
	lookup := mirrorlai.ParallelCacheLookup(s.cache, sources, target)

	if len(lookup.Misses) > 0 {
		out, err := s.backend.Translate(ctx, mirrorlai.TranslateRequest{
			Texts:         lookup.Misses,
			TargetLang:    target,
			SourceLang:    s.cfg.Locale.Source,
			ExcludedTerms: s.cfg.Translation.ExcludedTerms,
			Context:       s.cfg.Translation.Context,
			Glossary:      s.cfg.Translation.Glossary,
		})
		if err != nil {
			return nil, err
		}
		if len(out) != len(lookup.Misses) {
			return nil, &mirrorlai.CountMismatchError{Expected: len(lookup.Misses), Got: len(out)}
		}

		fresh := make(map[string]string, len(out))
		for i, src := range lookup.Misses {
			fresh[src] = out[i]
			lookup.Hits[src] = out[i]
		}
		if failed := mirrorlai.StoreTranslations(s.cache, fresh, target); failed > 0 {
			logger.Warn("could not cache %d of %d translations", failed, len(fresh))
		}
	}

	result := make([]string, len(strs))
	for i, str := range strs {
		if trimmed[i] == "" {
			result[i] = str
			continue
		}
		result[i] = processor.PreserveWhitespace(str, lookup.Hits[trimmed[i]])
	}
	return result, nil
}
