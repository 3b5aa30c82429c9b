package portal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/records"
)

// listingCells is the number of cells in a user table row: a selection
// column followed by display name, full name, email, created, updated and
// last login.
const listingCells = 7

// Scraper reads the paginated user table.
type Scraper struct {
	driver *Driver
	logger *zap.Logger
}

// NewScraper returns a Scraper driving d.
func NewScraper(d *Driver, logger *zap.Logger) *Scraper {
	return &Scraper{driver: d, logger: logger.Named("scraper")}
}

// ScrapeAll walks every page of the user table from the current page and
// returns the rows in page order. After reading a page its rows are removed
// from the document, so the next wait for rows only succeeds once the next
// page has actually rendered. The walk ends on the first page without a
// control for the following page number.
func (s *Scraper) ScrapeAll(ctx context.Context) ([]records.ListedAccount, error) {
	if err := s.driver.Require(ScreenListing); err != nil {
		return nil, err
	}
	s.logger.Info("Collecting all users")

	var accounts []records.ListedAccount
	for page := 1; ; page++ {
		s.logger.Info("Processing page", zap.Int("page", page))

		if err := s.driver.waitFor(ctx, locTableRow); err != nil {
			return nil, err
		}
		rows, err := s.driver.readRows(ctx, locTableRow)
		if err != nil {
			return nil, err
		}
		for i, cells := range rows {
			acct, err := accountFromCells(cells)
			if err != nil {
				return nil, UnexpectedUI(fmt.Sprintf("page %d row %d", page, i+1), err)
			}
			accounts = append(accounts, acct)
		}
		if err := s.driver.removeAll(ctx, locTableRow); err != nil {
			return nil, err
		}

		next := pageNumberControl(page + 1)
		more, err := s.driver.exists(ctx, next)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		if err := s.driver.click(ctx, next); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Collected users", zap.Int("count", len(accounts)))
	return accounts, nil
}

func accountFromCells(cells []string) (records.ListedAccount, error) {
	if len(cells) < listingCells {
		return records.ListedAccount{}, fmt.Errorf("expected %d cells, found %d", listingCells, len(cells))
	}
	return records.ListedAccount{
		DisplayName: cells[1],
		FullName:    cells[2],
		Email:       cells[3],
		Created:     records.SplitTimestamp(cells[4]),
		Updated:     records.SplitTimestamp(cells[5]),
		LoggedIn:    records.SplitTimestamp(cells[6]),
	}, nil
}
