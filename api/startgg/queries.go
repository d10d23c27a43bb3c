/* queries.go
 * Contains the GraphQL query and mutation strings sent to the start.gg gql endpoint
 * Authors: Zachary Bower
 */

package startgg

const tournamentQuery = `
query Tournament($slug: String!) {
    tournament(slug: $slug) {
        id
        name
        events {
            id
            name
            numEntrants
        }
        stations(perPage: 500) {
            nodes {
                id
                number
            }
        }
        admins(roles: null) {
            name
        }
    }
}`

const eventPhasesQuery = `
query EventPhases($eventId: ID!) {
    event(id: $eventId) {
        id
        name
        numEntrants
        phases {
            id
            name
            phaseGroups {
                nodes {
                    id
                    displayIdentifier
                }
            }
        }
        videogame {
            id
        }
    }
}`

const phaseSetsQuery = `
query PhaseSets($phaseId: ID!, $phaseGroupId: ID!, $eventId: ID!, $state: [Int]!) {
    event(id: $eventId) {
        phases(phaseId: $phaseId) {
            id
            name
            sets(filters: { phaseGroupIds: [$phaseGroupId], state: $state, hideEmpty: true }) {
                nodes {
                    id
                    identifier
                    round
                    fullRoundText
                    slots {
                        entrant {
                            name
                            id
                        }
                    }
                    stream {
                        id
                    }
                    station {
                        id
                    }
                }
            }
        }
    }
}`

const phaseRoundsQuery = `
query PhaseRounds($phaseId: ID!, $phaseGroupId: ID!, $eventId: ID!) {
    event(id: $eventId) {
        phases(phaseId: $phaseId) {
            sets(filters: { phaseGroupIds: [$phaseGroupId] }) {
                nodes {
                    round
                    fullRoundText
                }
            }
        }
    }
}`

const eventEntrantsQuery = `
query EventEntrants($eventId: ID!, $pageNumber: Int!) {
    event(id: $eventId) {
        entrants(query: { page: $pageNumber, perPage: 100 }) {
            nodes {
                id
                name
                participants {
                    user {
                        authorizations {
                            externalId
                            externalUsername
                            type
                        }
                    }
                }
            }
        }
    }
}`

const charactersQuery = `
query Videogame($id: ID!) {
    videogame(id: $id) {
        characters {
            name
            id
        }
    }
}`

const reportSetMutation = `
mutation ReportBracketSet($setId: ID!, $winnerId: ID!, $gameData: [BracketSetGameDataInput!]) {
    reportBracketSet(setId: $setId, winnerId: $winnerId, gameData: $gameData) {
        id
        state
        identifier
    }
}`

const markSetCalledMutation = `
mutation MarkSetCalled($setId: ID!) {
    markSetCalled(setId: $setId) {
        id
    }
}`

const markSetInProgressMutation = `
mutation MarkSetInProgress($setId: ID!) {
    markSetInProgress(setId: $setId) {
        id
    }
}`

const assignStationMutation = `
mutation AssignStation($setId: ID!, $stationId: ID!) {
    assignStation(setId: $setId, stationId: $stationId) {
        identifier
    }
}`

const upsertStationMutation = `
mutation UpsertStation($tournamentId: ID!, $fields: StationUpsertInput!) {
    upsertStation(tournamentId: $tournamentId, fields: $fields) {
        id
    }
}`

const deleteStationMutation = `
mutation DeleteStation($stationId: ID!) {
    deleteStation(stationId: $stationId)
}`

const resetSetMutation = `
mutation ResetSet($setId: ID!) {
    resetSet(setId: $setId) {
        id
    }
}`
