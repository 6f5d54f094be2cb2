package domain

// donorToRecipients maps a donor blood type to the recipient types it can
// give to. This is the authoritative direction; the receiving view is
// derived, not stored.
var donorToRecipients = map[BloodType][]BloodType{
	ONeg:  {APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg},
	OPos:  {APos, BPos, ABPos, OPos},
	ANeg:  {APos, ANeg, ABPos, ABNeg},
	APos:  {APos, ABPos},
	BNeg:  {BPos, BNeg, ABPos, ABNeg},
	BPos:  {BPos, ABPos},
	ABNeg: {ABPos, ABNeg},
	ABPos: {ABPos},
}

// CanDonateTo returns the recipient types the given donor type can serve.
// Unknown donor types yield an empty set.
func CanDonateTo(donor BloodType) []BloodType {
	recipients, ok := donorToRecipients[donor]
	if !ok {
		return nil
	}
	out := make([]BloodType, len(recipients))
	copy(out, recipients)
	return out
}

// CanDonate reports whether blood from donor is compatible with recipient.
func CanDonate(donor, recipient BloodType) bool {
	for _, r := range donorToRecipients[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

// CompatibleDonors inverts the donation table: the donor types whose
// recipient set includes the given type.
func CompatibleDonors(recipient BloodType) []BloodType {
	out := make([]BloodType, 0, len(BloodTypes))
	for _, donor := range BloodTypes {
		if CanDonate(donor, recipient) {
			out = append(out, donor)
		}
	}
	return out
}
