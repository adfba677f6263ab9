package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/pricescrape/internal/config"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

// newAPIClient builds the backend client from the loaded configuration.
func newAPIClient(c *config.Config) scrapeapi.Client {
	return scrapeapi.NewClient(c.API.BaseURL,
		scrapeapi.WithTimeout(time.Duration(c.API.TimeoutSecs)*time.Second),
		scrapeapi.WithUserAgent(c.API.UserAgent),
		scrapeapi.WithRateLimit(rate.Limit(c.API.RateLimit), c.API.RateBurst),
	)
}

func pollInterval(c *config.Config) time.Duration {
	return time.Duration(c.Poll.IntervalSecs) * time.Second
}
