package utils

import "testing"

const verisignReply = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
`

func TestCreationDate(t *testing.T) {
	created, err := CreationDate(verisignReply)
	if err != nil {
		t.Fatalf("creation date: %v", err)
	}
	if created != "1995-08-14" {
		t.Fatalf("unexpected date: %s", created)
	}
}

func TestCreationDateUnknownDomain(t *testing.T) {
	if _, err := CreationDate(`No match for "UNREGISTERED-WARSCOPE.COM".`); err == nil {
		t.Fatalf("expected error for unregistered domain")
	}
}

func TestRegistrableDomain(t *testing.T) {
	if got := RegistrableDomain("Live.News.Example.co.uk."); got != "example.co.uk" {
		t.Fatalf("unexpected domain: %s", got)
	}
	if got := RegistrableDomain("localhost"); got != "localhost" {
		t.Fatalf("unexpected fallback: %s", got)
	}
}
