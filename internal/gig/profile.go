package gig

// Preferences captures what kind of gigs the user wants to see. RemoteOk is a
// pointer because "not stated" and "prefers on-site" are different answers for
// the location factor.
type Preferences struct {
	MinBudget  int      `json:"minBudget" mapstructure:"min-budget"`
	MaxBudget  int      `json:"maxBudget" mapstructure:"max-budget"`
	RemoteOk   *bool    `json:"remoteOk,omitempty" mapstructure:"remote-ok"`
	PartTimeOk bool     `json:"partTimeOk" mapstructure:"part-time-ok"`
	Platforms  []string `json:"platforms,omitempty" mapstructure:"platforms"`
}

// NotificationSettings controls which alert channels are active for the user.
type NotificationSettings struct {
	Alerts bool `json:"alerts" mapstructure:"alerts"`
	Email  bool `json:"email" mapstructure:"email"`
	Push   bool `json:"push" mapstructure:"push"`
}

// UserProfile is a read-only snapshot of the profile owned by the outer
// application layer. The matching core never mutates it.
type UserProfile struct {
	ID            string               `json:"id" mapstructure:"id"`
	Skills        []string             `json:"skills" mapstructure:"skills"`
	Preferences   Preferences          `json:"preferences" mapstructure:"preferences"`
	Notifications NotificationSettings `json:"notificationSettings" mapstructure:"notifications"`
}

// SubscriptionPreferences is the server-side alert filter derived from a
// profile. The transport carries it opaquely.
type SubscriptionPreferences struct {
	Skills    []string `json:"skills"`
	MinBudget int      `json:"minBudget"`
	MaxBudget int      `json:"maxBudget"`
	RemoteOk  bool     `json:"remoteOk"`
	Platforms []string `json:"platforms"`
}

// SubscriptionPreferences projects the profile into the value object sent to
// the alert server.
func (p *UserProfile) SubscriptionPreferences() SubscriptionPreferences {
	prefs := SubscriptionPreferences{
		Skills:    append([]string(nil), p.Skills...),
		MinBudget: p.Preferences.MinBudget,
		MaxBudget: p.Preferences.MaxBudget,
		Platforms: append([]string(nil), p.Preferences.Platforms...),
	}
	if p.Preferences.RemoteOk != nil {
		prefs.RemoteOk = *p.Preferences.RemoteOk
	}
	return prefs
}
