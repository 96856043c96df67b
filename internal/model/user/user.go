package user

import "time"

// Message is a single anonymous note left on a user's profile.
type Message struct {
	ID        string    `json:"_id" bson:"_id"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// User is an account that can receive anonymous messages.
type User struct {
	ID                  string    `json:"_id" bson:"_id"`
	Username            string    `json:"username" bson:"username"`
	Email               string    `json:"email" bson:"email"`
	PasswordHash        string    `json:"-" bson:"password"`
	VerifyCode          string    `json:"-" bson:"verifyCode"`
	VerifyCodeExpiry    time.Time `json:"-" bson:"verifyCodeExpiry"`
	IsVerified          bool      `json:"isVerified" bson:"isVerified"`
	IsAcceptingMessages bool      `json:"isAcceptingMessages" bson:"isAcceptingMessages"`
	Messages            []Message `json:"-" bson:"messages"`
	CreatedAt           time.Time `json:"createdAt" bson:"createdAt"`
}

// CodeMatches reports whether code is the user's current code and still valid at now.
func (u User) CodeMatches(code string, now time.Time) (valid bool, expired bool) {
	expired = !u.VerifyCodeExpiry.After(now)
	valid = u.VerifyCode != "" && u.VerifyCode == code
	return valid, expired
}
