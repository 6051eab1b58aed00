package parser

// logSchema is the part of the export layout the aggregation relies on.
// Unknown members are allowed.
const logSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["durationMS", "players", "targets"],
  "properties": {
    "fightName": {"type": "string"},
    "durationMS": {"type": "number", "minimum": 0},
    "timeStart": {"type": "string"},
    "timeEnd": {"type": "string"},
    "detailedWvW": {"type": "boolean"},
    "uploadLinks": {"type": "array", "items": {"type": "string"}},
    "players": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "profession"],
        "properties": {
          "name": {"type": "string"},
          "account": {"type": "string"},
          "profession": {"type": "string"},
          "group": {"type": "integer"},
          "notInSquad": {"type": "boolean"},
          "activeTimes": {"type": "array", "items": {"type": "number"}},
          "damage1S": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
          "targetDamage1S": {
            "type": "array",
            "items": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}}
          },
          "combatReplayData": {"type": ["object", "null"]}
        }
      }
    },
    "targets": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "enemyPlayer": {"type": "boolean"},
          "isFake": {"type": "boolean"},
          "teamID": {"type": "integer"}
        }
      }
    },
    "skillMap": {"type": "object"},
    "buffMap": {"type": "object"},
    "damageModMap": {"type": "object"}
  }
}`
