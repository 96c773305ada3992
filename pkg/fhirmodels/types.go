package fhirmodels

// Value sets accepted by the resource sanitizers.

// Companion species.
const (
	SpeciesDog   = "dog"
	SpeciesCat   = "cat"
	SpeciesHorse = "horse"
	SpeciesOther = "other"
)

// AdministrativeGender values per FHIR R4.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// Companion record status.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeceased = "deceased"
)

// How a companion came to the practice.
const (
	SourceWalkIn   = "walk-in"
	SourceReferral = "referral"
	SourceOnline   = "online"
	SourceTransfer = "transfer"
	SourceOther    = "other"
)

// PractitionerRole codes. The first four follow the HL7 practitioner-role
// code system; the rest are practice-specific.
const (
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RolePharmacist   = "pharmacist"
	RoleResearcher   = "researcher"
	RoleVeterinarian = "veterinarian"
	RoleVetTech      = "vet-technician"
	RoleGroomer      = "groomer"
	RoleReceptionist = "receptionist"
	RoleAdmin        = "admin"
)

var (
	Species  = []string{SpeciesDog, SpeciesCat, SpeciesHorse, SpeciesOther}
	Genders  = []string{GenderMale, GenderFemale, GenderOther, GenderUnknown}
	Statuses = []string{StatusActive, StatusInactive, StatusDeceased}
	Sources  = []string{SourceWalkIn, SourceReferral, SourceOnline, SourceTransfer, SourceOther}
	Roles    = []string{
		RoleDoctor, RoleNurse, RolePharmacist, RoleResearcher,
		RoleVeterinarian, RoleVetTech, RoleGroomer, RoleReceptionist, RoleAdmin,
	}
)
