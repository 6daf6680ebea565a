package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"
)

var ErrNoCreationDate = errors.New("whois: no creation date")

// DomainLookup reports when a domain was registered.
type DomainLookup struct {
	client *whois.Client
}

func NewDomainLookup(timeout time.Duration) *DomainLookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DomainLookup{client: whois.NewClient().SetTimeout(timeout)}
}

// Registered returns the registry creation date for the registrable part of host.
func (l *DomainLookup) Registered(host string) (string, error) {
	domain := RegistrableDomain(host)
	raw, err := l.client.Whois(domain)
	if err != nil {
		return "", fmt.Errorf("whois %s: %w", domain, err)
	}
	return CreationDate(raw)
}

// CreationDate extracts the creation date from a raw WHOIS response.
func CreationDate(raw string) (string, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse whois: %w", err)
	}
	if info.Domain == nil || strings.TrimSpace(info.Domain.CreatedDate) == "" {
		return "", ErrNoCreationDate
	}
	created := strings.TrimSpace(info.Domain.CreatedDate)
	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		created = ts.UTC().Format("2006-01-02")
	}
	return created, nil
}

// RegistrableDomain trims subdomains, e.g. live.news.example.co.uk -> example.co.uk.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if apex, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return apex
	}
	return host
}
