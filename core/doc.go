// Package core contains the central domain contracts of AgentPulse: the
// Agent interface and its declarative configuration, the lifecycle state
// machine, trigger and schedule unions, execution results, the engine event
// taxonomy and the narrow interfaces through which external collaborators
// (agent factories, snapshot stores, upstream event sources) plug in.
//
// Keeping these contracts in a single leaf package avoids dependency cycles
// between the engine, scheduler and state packages and gives integrators one
// import for everything they need to implement an agent.
package core
