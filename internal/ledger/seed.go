package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// SeedAccount is an initial balance loaded at startup
type SeedAccount struct {
	Principal domain.Principal
	Tokens    int64
	Native    int64
}

// ParseSeed parses "principal:tokens:native" entries separated by commas.
// The native part is optional.
func ParseSeed(raw string) ([]SeedAccount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var accounts []SeedAccount
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid seed entry %q: want principal:tokens[:native]", entry)
		}

		tokens, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || tokens < 0 {
			return nil, fmt.Errorf("invalid token amount in seed entry %q", entry)
		}

		var native int64
		if len(parts) == 3 {
			native, err = strconv.ParseInt(parts[2], 10, 64)
			if err != nil || native < 0 {
				return nil, fmt.Errorf("invalid native amount in seed entry %q", entry)
			}
		}

		accounts = append(accounts, SeedAccount{
			Principal: domain.Principal(parts[0]),
			Tokens:    tokens,
			Native:    native,
		})
	}
	return accounts, nil
}
