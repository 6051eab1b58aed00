package core

import (
	"fmt"
	"strings"
)

// PlayerKey identifies a character across fights. The same account playing
// two professions yields two keys.
type PlayerKey struct {
	Name       string `json:"name"`
	Profession string `json:"profession"`
}

func (k PlayerKey) String() string {
	return fmt.Sprintf("%s|%s", k.Name, k.Profession)
}

// MarshalText lets PlayerKey be used as a JSON object key.
func (k PlayerKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "name|profession".
func (k *PlayerKey) UnmarshalText(b []byte) error {
	name, prof, ok := strings.Cut(string(b), "|")
	if !ok {
		return fmt.Errorf("invalid player key %q", b)
	}
	k.Name, k.Profession = name, prof
	return nil
}

// Role is the inferred function of a player in one fight.
type Role int

const (
	RoleDPS Role = iota
	RoleCondi
	RoleSupport
)

var roleNames = [...]string{
	RoleDPS:     "DPS",
	RoleCondi:   "Condi",
	RoleSupport: "Support",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "Unknown"
	}
	return roleNames[r]
}

// MarshalText renders the role name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a role name.
func (r *Role) UnmarshalText(b []byte) error {
	role, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole maps a role name back to its value.
func ParseRole(s string) (Role, error) {
	for i, n := range roleNames {
		if n == s {
			return Role(i), nil
		}
	}
	return RoleDPS, fmt.Errorf("unknown role %q", s)
}

// RoleKey is a PlayerKey split by role. When roles are not split every key
// carries RoleDPS and Split is false.
type RoleKey struct {
	PlayerKey
	Role  Role `json:"role"`
	Split bool `json:"-"`
}

func (k RoleKey) String() string {
	if !k.Split {
		return k.PlayerKey.String()
	}
	return fmt.Sprintf("%s|%s", k.PlayerKey, k.Role)
}

// MarshalText shadows the promoted PlayerKey method so the role survives.
func (k RoleKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "name|profession" or "name|profession|role".
func (k *RoleKey) UnmarshalText(b []byte) error {
	parts := strings.Split(string(b), "|")
	switch len(parts) {
	case 2:
		*k = RoleKey{PlayerKey: PlayerKey{Name: parts[0], Profession: parts[1]}}
	case 3:
		role, err := ParseRole(parts[2])
		if err != nil {
			return err
		}
		*k = RoleKey{PlayerKey: PlayerKey{Name: parts[0], Profession: parts[1]}, Role: role, Split: true}
	default:
		return fmt.Errorf("invalid role key %q", b)
	}
	return nil
}

// NewRoleKey builds the derived-metric key for a player. split selects
// whether the role is part of the identity.
func NewRoleKey(key PlayerKey, role Role, split bool) RoleKey {
	if !split {
		return RoleKey{PlayerKey: key}
	}
	return RoleKey{PlayerKey: key, Role: role, Split: true}
}
