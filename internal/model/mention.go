package model

import "strconv"

// MentionUser formats a platform user mention.
func MentionUser(id int64) string {
	return "<@" + strconv.FormatInt(id, 10) + ">"
}

// MentionRole formats a platform role mention.
func MentionRole(id int64) string {
	return "<@&" + strconv.FormatInt(id, 10) + ">"
}

// MentionChannel formats a platform channel mention.
func MentionChannel(id int64) string {
	return "<#" + strconv.FormatInt(id, 10) + ">"
}
