// Package main reports reply catalog coverage per locale against the base
// locale. With -strict it exits non-zero when any locale is incomplete.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/louisbranch/dualitydice/internal/platform/config"
	i18ncatalog "github.com/louisbranch/dualitydice/internal/platform/i18n/catalog"
)

type report struct {
	BaseLocale string         `json:"base_locale"`
	Locales    []localeStatus `json:"locales"`
}

type localeStatus struct {
	Locale      string            `json:"locale"`
	Translated  int               `json:"translated"`
	Completion  float64           `json:"completion"`
	Namespaces  []namespaceStatus `json:"namespaces"`
	MissingKeys []string          `json:"missing_keys,omitempty"`
	ExtraKeys   []string          `json:"extra_keys,omitempty"`
}

type namespaceStatus struct {
	Namespace string `json:"namespace"`
	BaseKeys  int    `json:"base_keys"`
	Missing   int    `json:"missing"`
}

func main() {
	var asJSON, strict bool
	flag.BoolVar(&asJSON, "json", false, "print the report as JSON")
	flag.BoolVar(&strict, "strict", false, "exit 1 when a locale misses base keys")
	flag.Parse()

	bundle, err := i18ncatalog.LoadEmbedded()
	if err != nil {
		config.Exitf("load i18n catalogs: %v", err)
	}
	rep := buildReport(bundle)

	if asJSON {
		err = writeJSON(os.Stdout, rep)
	} else {
		err = writeTable(os.Stdout, rep)
	}
	if err != nil {
		config.Exitf("write report: %v", err)
	}
	if strict && !rep.complete() {
		os.Exit(1)
	}
}

func buildReport(bundle *i18ncatalog.Bundle) report {
	base := bundle.LocaleMessages(i18ncatalog.BaseLocale)
	baseNamespaces := bundle.Namespaces(i18ncatalog.BaseLocale)

	var statuses []localeStatus
	for _, locale := range bundle.Locales() {
		if locale == i18ncatalog.BaseLocale {
			continue
		}
		missing := bundle.Missing(locale)
		status := localeStatus{
			Locale:      locale,
			Translated:  len(base) - len(missing),
			Completion:  percent(len(base)-len(missing), len(base)),
			MissingKeys: missing,
			ExtraKeys:   extraKeys(base, bundle.LocaleMessages(locale)),
		}
		for _, ns := range baseNamespaces {
			status.Namespaces = append(status.Namespaces, namespaceStatus{
				Namespace: ns,
				BaseKeys:  countPrefix(keys(base), ns),
				Missing:   countPrefix(missing, ns),
			})
		}
		statuses = append(statuses, status)
	}
	return report{BaseLocale: i18ncatalog.BaseLocale, Locales: statuses}
}

func (r report) complete() bool {
	for _, l := range r.Locales {
		if len(l.MissingKeys) > 0 {
			return false
		}
	}
	return true
}

func writeJSON(w io.Writer, rep report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeTable(w io.Writer, rep report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "base locale %s\n", rep.BaseLocale)
	fmt.Fprintln(tw, "LOCALE\tNAMESPACE\tKEYS\tMISSING")
	for _, l := range rep.Locales {
		for _, ns := range l.Namespaces {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", l.Locale, ns.Namespace, ns.BaseKeys, ns.Missing)
		}
		fmt.Fprintf(tw, "%s\t(all)\t%d\t%.1f%%\n", l.Locale, l.Translated, l.Completion)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, l := range rep.Locales {
		for _, key := range l.MissingKeys {
			fmt.Fprintf(w, "missing %s %s\n", l.Locale, key)
		}
		for _, key := range l.ExtraKeys {
			fmt.Fprintf(w, "extra %s %s\n", l.Locale, key)
		}
	}
	return nil
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func extraKeys(base, target map[string]string) []string {
	var out []string
	for key := range target {
		if _, ok := base[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func countPrefix(list []string, namespace string) int {
	n := 0
	for _, key := range list {
		if strings.HasPrefix(key, namespace+".") {
			n++
		}
	}
	return n
}

func percent(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 100
	}
	return math.Round(float64(numerator)*1000/float64(denominator)) / 10
}
