package engine

// rule gates a command before its handler runs: the admin check fires
// first, then the phase check. A nil phase list admits every phase.
type rule struct {
	phases []Phase
	admin  bool
}

var anyButQueue = []Phase{PhaseMapPick, PhaseCaptainPick, PhaseDraft, PhaseSidePick, PhaseReady}

var dispatch = map[CommandKind]rule{
	CmdJoin:       {},
	CmdLeave:      {phases: []Phase{PhaseQueue}},
	CmdKick:       {phases: []Phase{PhaseQueue}, admin: true},
	CmdClear:      {admin: true},
	CmdRecover:    {admin: true},
	CmdStart:      {phases: []Phase{PhaseQueue}, admin: true},
	CmdCancel:     {phases: anyButQueue, admin: true},
	CmdCaptain:    {phases: []Phase{PhaseCaptainPick}},
	CmdPick:       {phases: []Phase{PhaseDraft}},
	CmdChooseSide: {phases: []Phase{PhaseSidePick}},
	CmdReady:      {phases: []Phase{PhaseReady}},
	CmdUnready:    {phases: []Phase{PhaseReady}},
	CmdOpenVote:   {phases: []Phase{PhaseMapPick}},
	CmdCloseVote:  {phases: []Phase{PhaseMapPick}},
	CmdAbortSetup: {phases: []Phase{PhaseMapPick}},
}
