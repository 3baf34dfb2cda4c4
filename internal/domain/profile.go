package domain

// Profile is the single record kept per platform user.
type Profile struct {
	UserID       string `dynamodbav:"userId" json:"userId"`
	Email        string `dynamodbav:"email,omitempty" json:"email,omitempty"`
	FullName     string `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	PracticeName string `dynamodbav:"practiceName,omitempty" json:"practiceName,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt    string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries the optional fields of a partial profile update.
// Nil fields are left untouched; UserID and CreatedAt can never be changed.
type ProfileUpdate struct {
	Email        *string `json:"email,omitempty"`
	FullName     *string `json:"fullName,omitempty"`
	PracticeName *string `json:"practiceName,omitempty"`
}

// Empty reports whether no field is set.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FullName == nil && u.PracticeName == nil
}
