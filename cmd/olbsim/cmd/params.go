package cmd

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/bgas/mem/olb"
)

// loadParams reads OLB parameters from KEY=VALUE files and then applies the
// overrides, so that later sources win.
func loadParams(files []string, overrides []string) (olb.Params, error) {
	params := olb.Params{}

	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading parameter file %s: %w", f, err)
		}

		for k, v := range values {
			params.Set(k, v)
		}
	}

	for _, o := range overrides {
		k, v, found := strings.Cut(o, "=")
		if !found || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("parameter %q is not in KEY=VALUE form", o)
		}

		params.Set(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	return params, nil
}
