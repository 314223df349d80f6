package game

// Presenter is the callback surface of the presentation layer. Callbacks
// run on the client loop goroutine and must not block.
type Presenter interface {
	OnScreenChange(screen Screen)
	OnRoomsChange(rooms []Room)
	OnPlayersListChange(players []Player)
	OnHandChange(cards []Card)
	OnFieldChange(owner string, zone Zone, cards []Card)
	OnNotification(message string)
	OnTurnChange(isMyTurn bool, tod TimeOfDay, currentPlayerName string)
}

// NopPresenter ignores every callback. Embed it to implement a subset.
type NopPresenter struct{}

func (NopPresenter) OnScreenChange(Screen)                {}
func (NopPresenter) OnRoomsChange([]Room)                 {}
func (NopPresenter) OnPlayersListChange([]Player)         {}
func (NopPresenter) OnHandChange([]Card)                  {}
func (NopPresenter) OnFieldChange(string, Zone, []Card)   {}
func (NopPresenter) OnNotification(string)                {}
func (NopPresenter) OnTurnChange(bool, TimeOfDay, string) {}

// Dispatch forwards presentation effects to p in order.
func Dispatch(p Presenter, effects []Effect) {
	if p == nil {
		return
	}
	for _, e := range effects {
		switch e := e.(type) {
		case ScreenChanged:
			p.OnScreenChange(e.Screen)
		case PlayersChanged:
			p.OnPlayersListChange(e.Players)
		case HandChanged:
			p.OnHandChange(e.Cards)
		case FieldChanged:
			p.OnFieldChange(e.Owner, e.Zone, e.Cards)
		case Notified:
			p.OnNotification(e.Message)
		case TurnUpdated:
			p.OnTurnChange(e.IsMyTurn, e.TimeOfDay, e.PlayerName)
		}
	}
}
