// Package countries は国マスタの参照APIを提供します。
package countries

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/geo-accounts/internal/logging"
	"github.com/yourusername/geo-accounts/internal/storage"
)

// Store は国マスタの読み取り操作です。
type Store interface {
	List(ctx context.Context, regions []string) ([]storage.Country, error)
	Get(ctx context.Context, alpha2 string) (*storage.Country, error)
}

// ListHandler は GET /api/countries のハンドラーを返します。
// region クエリは複数指定でき、いずれかに一致する国を返します。
func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		regions := cleanRegions(c.QueryArray("region"))

		countries, err := store.List(c.Request.Context(), regions)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if len(countries) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"reason": "No countries found for the specified region(s)"})
			return
		}

		c.JSON(http.StatusOK, countries)
	}
}

// GetHandler は GET /api/countries/:alpha2 のハンドラーを返します。
func GetHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(strings.TrimSpace(c.Param("alpha2")))
		if len(code) != 2 {
			c.JSON(http.StatusNotFound, gin.H{"reason": "Country not found"})
			return
		}

		country, err := store.Get(c.Request.Context(), code)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, country)
	}
}

func cleanRegions(raw []string) []string {
	var regions []string
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			regions = append(regions, r)
		}
	}
	return regions
}

func respondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"reason": "Country not found"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{"reason": "Request was canceled"})
	default:
		logging.From(c.Request.Context()).Error("country lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"reason": "Internal server error"})
	}
}
