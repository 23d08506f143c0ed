package resolve

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.mau.fi/whatsmeow/types"

	"wavault/internal/data/store"
	"wavault/internal/utils/retry"
)

// Directory answers whether phone numbers are registered on the network.
// The live client satisfies this; tests supply a fake.
type Directory interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
}

// NameHints carries the names a single message event already knows about
// its sender, checked before any store or network lookup.
type NameHints struct {
	PushName     string
	VerifiedName string
}

// Resolver turns JIDs into display names. Lookups walk a fixed chain:
// event hints, then the contact cache, then a network directory query,
// falling back to the bare phone number. Directory answers are cached so
// a burst of messages from one sender costs one query.
type Resolver struct {
	contacts  *store.ContactStore
	directory Directory
	cache     *cache.Cache
	retryCfg  retry.Config
	log       waLog.Logger
}

// NewResolver creates a name resolver. directory may be nil when no
// connection is available; the chain then stops at the contact cache.
func NewResolver(contacts *store.ContactStore, directory Directory, log waLog.Logger) *Resolver {
	return &Resolver{
		contacts:  contacts,
		directory: directory,
		cache:     cache.New(10*time.Minute, 30*time.Minute),
		retryCfg:  retry.DefaultConfig(),
		log:       log,
	}
}

// DisplayName resolves the best display name for a user JID.
func (r *Resolver) DisplayName(ctx context.Context, jid types.JID, hints NameHints) string {
	if hints.PushName != "" {
		return hints.PushName
	}
	if hints.VerifiedName != "" {
		return hints.VerifiedName
	}

	name, err := r.contacts.BestName(jid.String())
	if err != nil {
		r.log.Warnf("Contact lookup failed for %s: %v", jid, err)
	}
	if name != "" {
		return name
	}

	if verified := r.directoryName(ctx, jid); verified != "" {
		return verified
	}
	return jid.User
}

// directoryName queries the network directory for a verified business
// name. Results, including misses, are cached under the phone number.
func (r *Resolver) directoryName(ctx context.Context, jid types.JID) string {
	phone := PhoneFromJID(jid)
	if phone == "" || r.directory == nil {
		return ""
	}

	if cached, found := r.cache.Get(phone); found {
		return cached.(string)
	}

	responses, err := r.directory.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		r.log.Warnf("Directory lookup failed for %s: %v", phone, err)
		return ""
	}

	name := ""
	for _, resp := range responses {
		if resp.IsIn && resp.VerifiedName != nil && resp.VerifiedName.Details != nil {
			name = resp.VerifiedName.Details.GetVerifiedName()
			break
		}
	}
	r.cache.Set(phone, name, cache.DefaultExpiration)
	return name
}

// ResolveJID maps a phone number to its registered JID via the directory,
// or a zero JID when the number is not registered. Answers are cached.
func (r *Resolver) ResolveJID(ctx context.Context, phone, countryCode string) (types.JID, error) {
	clean := NormalizePhone(phone, countryCode)
	if clean == "" || r.directory == nil {
		return types.EmptyJID, nil
	}

	key := "jid:" + clean
	if cached, found := r.cache.Get(key); found {
		return cached.(types.JID), nil
	}

	// Send paths depend on this answer, so transient directory failures
	// get a bounded retry before the caller falls back.
	var responses []types.IsOnWhatsAppResponse
	err := retry.Do(ctx, r.retryCfg, func() error {
		var lookupErr error
		responses, lookupErr = r.directory.IsOnWhatsApp(ctx, []string{"+" + clean})
		return lookupErr
	})
	if err != nil {
		return types.EmptyJID, err
	}

	jid := types.EmptyJID
	for _, resp := range responses {
		if resp.IsIn {
			jid = resp.JID.ToNonAD()
			break
		}
	}
	r.cache.Set(key, jid, cache.DefaultExpiration)
	return jid, nil
}

// RememberPushName records a push name learned from an event.
func (r *Resolver) RememberPushName(jid types.JID, pushName string) {
	if pushName == "" {
		return
	}
	err := r.contacts.Put(&store.Contact{JID: jid.String(), PushName: pushName})
	if err != nil {
		r.log.Warnf("Failed to store push name for %s: %v", jid, err)
	}
}

// RememberContact records full contact details learned from an event or
// history sync.
func (r *Resolver) RememberContact(jid types.JID, fullName, businessName string) {
	if fullName == "" && businessName == "" {
		return
	}
	err := r.contacts.Put(&store.Contact{
		JID:          jid.String(),
		FullName:     fullName,
		BusinessName: businessName,
	})
	if err != nil {
		r.log.Warnf("Failed to store contact %s: %v", jid, err)
	}
}
