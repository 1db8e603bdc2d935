package memory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// IndividualConversationID is stable under argument order.
func IndividualConversationID(idA, idB string) string {
	ids := []string{idA, idB}
	sort.Strings(ids)
	return fmt.Sprintf("individual:%s:%s", ids[0], ids[1])
}

func GroupConversationID(groupID string) string {
	return "group:" + groupID
}

// PointID derives a UUIDv5 (DNS namespace) from seed.
func PointID(seed string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(seed)).String()
}

// IndividualPointID hashes the conversation id with both current display
// names, ordered by user id. Same names give the same point; a rename gives
// a new one and the old point is left in place.
func IndividualPointID(a, b Participant) string {
	lo, hi := orderByID(a, b)
	return PointID(fmt.Sprintf("%s:%s:%s", IndividualConversationID(a.UserID, b.UserID), lo.Name, hi.Name))
}

// GroupPointID hashes the conversation id with the current group name.
func GroupPointID(groupID, groupName string) string {
	return PointID(fmt.Sprintf("%s:%s", GroupConversationID(groupID), groupName))
}

func orderByID(a, b Participant) (Participant, Participant) {
	if b.UserID < a.UserID {
		return b, a
	}
	return a, b
}
