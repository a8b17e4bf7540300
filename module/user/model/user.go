package model

import "time"

// User carries only the fields the realtime core touches. Profile CRUD,
// credentials and settings live behind the account API, not here.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Username    string    `bson:"username" json:"username"`
	DisplayName string    `bson:"display_name" json:"displayName"`
	Online      bool      `bson:"online" json:"online"`
	LastSeen    time.Time `bson:"last_seen" json:"lastSeen"`
}
