package model

// ParticipantRole is the closed set of supply-chain roles, identified by the
// ledger's variant tag.
type ParticipantRole string

const (
	RoleManufacturer ParticipantRole = "Manufacturer"
	RoleSupplier     ParticipantRole = "Supplier"
	RoleDistributor  ParticipantRole = "Distributor"
	RoleRetailer     ParticipantRole = "Retailer"
	RoleConsumer     ParticipantRole = "Consumer"
	RoleAuditor      ParticipantRole = "Auditor"
	RoleUnknown      ParticipantRole = "Unknown"
)

var participantRoles = map[ParticipantRole]struct{}{
	RoleManufacturer: {},
	RoleSupplier:     {},
	RoleDistributor:  {},
	RoleRetailer:     {},
	RoleConsumer:     {},
	RoleAuditor:      {},
}

// Known reports whether the role is part of the closed set.
func (r ParticipantRole) Known() bool {
	_, ok := participantRoles[r]
	return ok
}

// ParticipantRoleFromTag translates a ledger variant tag; unrecognised tags
// map to RoleUnknown.
func ParticipantRoleFromTag(tag string) ParticipantRole {
	r := ParticipantRole(tag)
	if r.Known() {
		return r
	}
	return RoleUnknown
}

// Participant is a registered supply-chain actor.
type Participant struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Role       ParticipantRole `json:"role"`
	Location   string          `json:"location"`
	PublicKey  string          `json:"public_key"`
	IsVerified bool            `json:"is_verified"`
}

// RegisterParticipantInput carries the caller-supplied fields of the ledger's
// participant registration.
type RegisterParticipantInput struct {
	Name      string          `json:"name" binding:"required"`
	Role      ParticipantRole `json:"role" binding:"required"`
	Location  string          `json:"location"`
	PublicKey string          `json:"public_key"`
}

// Validate checks the required fields and the closed role set.
func (in RegisterParticipantInput) Validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !in.Role.Known() {
		return &ValidationError{Field: "role", Reason: "unrecognised participant role"}
	}
	return nil
}
