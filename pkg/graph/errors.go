package graph

import "errors"

var (
	ErrUnknownIntersection = errors.New("unknown intersection")
	ErrUnknownRoad         = errors.New("unknown road")
	ErrRoadRemoved         = errors.New("road has been removed")
	ErrDegenerateRoad      = errors.New("road endpoints coincide")
	ErrInvalidParameter    = errors.New("invalid parameter")
)
