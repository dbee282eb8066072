// Command staticlint is the project's static analysis binary. It runs a
// fixed set of analyzers from golang.org/x/tools, ineffassign and nilerr,
// the noosexit analyzer, and the staticcheck analyzers named in
// staticlint.json.
//
// staticlint.json is looked up next to the executable; a missing file
// enables defaultStaticcheck.
//
//	{"staticcheck": ["SA1000", "SA4006"]}
//
// Usage:
//
//	staticlint ./...
package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/imgsearch/cmd/staticlint/noosexit"
)

const configFileName = `staticlint.json`

// defaultStaticcheck is used when no config file is present.
var defaultStaticcheck = []string{"SA"}

// ConfigData is the layout of staticlint.json. Entries are analyzer names
// such as "SA1000", or prefixes such as "SA4" to enable a whole group.
type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	multichecker.Main(analyzers(cfg)...)
}

func loadConfig() (ConfigData, error) {
	cfg := ConfigData{Staticcheck: defaultStaticcheck}

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), configFileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)

	return cfg, err
}

func analyzers(cfg ConfigData) []*analysis.Analyzer {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}

	for _, v := range staticcheck.Analyzers {
		if isEnabled(cfg.Staticcheck, v.Analyzer.Name) {
			checks = append(checks, v.Analyzer)
		}
	}

	return checks
}

func isEnabled(enabled []string, name string) bool {
	for _, prefix := range enabled {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
