package store

import "path"

const (
	userRoot = "/user"
	dataRoot = "/data"
)

// RegistryPath is the scope holding a user's chats and settings.
func RegistryPath(userID string) string {
	return path.Join(userRoot, userID)
}

// DataPath is the scope holding the messages of a chat, derived from the chat's key.
func DataPath(chatKey string) string {
	return path.Join(dataRoot, chatKey)
}

// ItemPath of the record with the given key in the given scope.
func ItemPath(scope, key string) string {
	return path.Join(scope, key)
}
