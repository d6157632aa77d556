package ws

// client → server
const (
	MsgLobbyCreate  = "lobby:create"
	MsgLobbyJoin    = "lobby:join"
	MsgLobbyLeave   = "lobby:leave"
	MsgUpdatePlayer = "lobby:updatePlayer"
	MsgToggleReady  = "lobby:toggleReady"
	MsgGameStart    = "game:start"
	MsgGameAction   = "game:action"
	MsgPing         = "ping"
)

// server → client
const (
	MsgLobbyCreated   = "lobby:created"
	MsgLobbyJoined    = "lobby:joined"
	MsgLobbyLeft      = "lobby:left"
	MsgLobbyUpdated   = "lobby:updated"
	MsgPlayerJoined   = "lobby:playerJoined"
	MsgPlayerLeft     = "lobby:playerLeft"
	MsgPlayerUpdated  = "lobby:playerUpdated"
	MsgLobbyDisbanded = "lobby:disbanded"
	MsgGameStarting   = "game:starting"
	MsgGameStarted    = "game:started"
	MsgStateUpdate    = "game:stateUpdate"
	MsgRoundEnded     = "game:roundEnded"
	MsgGameEnded      = "game:ended"
	MsgActionResult   = "game:actionResult"
	MsgPong           = "pong"
	MsgError          = "error"
)
