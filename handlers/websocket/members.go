package websocket

import (
	"sort"
	"sync"
)

// boardMembers counts open sockets per user per board.
type boardMembers struct {
	mu     sync.RWMutex
	boards map[string]map[string]int
}

func newBoardMembers() *boardMembers {
	return &boardMembers{boards: make(map[string]map[string]int)}
}

func (b *boardMembers) join(boardID, userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	users, ok := b.boards[boardID]
	if !ok {
		users = make(map[string]int)
		b.boards[boardID] = users
	}
	users[userID]++
	return sortedUsers(users)
}

// leave returns how many sockets userID still has on the board and who is
// left on it.
func (b *boardMembers) leave(boardID, userID string) (remaining int, users []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	board, ok := b.boards[boardID]
	if !ok {
		return 0, nil
	}
	if board[userID] > 1 {
		board[userID]--
	} else {
		delete(board, userID)
	}
	if len(board) == 0 {
		delete(b.boards, boardID)
	}
	return board[userID], sortedUsers(board)
}

// active maps every board with editors to its editor count.
func (b *boardMembers) active() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]int, len(b.boards))
	for id, users := range b.boards {
		out[id] = len(users)
	}
	return out
}

func sortedUsers(users map[string]int) []string {
	out := make([]string, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
