package progression

// MaxLevel is the highest reachable level.
const MaxLevel = 100

// Rank is one row of the level table.
type Rank struct {
	Level      int
	Name       string
	XPRequired int64
	Reward     int64
}

// ranks holds the fixed level table. ranks[i] describes level i+1.
// XPRequired is strictly increasing; level 1 starts at 0.
var ranks = [MaxLevel]Rank{
	// Beginner (1-10)
	{Level: 1, Name: "Wolf Pup", XPRequired: 0, Reward: 10},
	{Level: 2, Name: "Curious Cub", XPRequired: 100, Reward: 15},
	{Level: 3, Name: "Playful Yearling", XPRequired: 250, Reward: 20},
	{Level: 4, Name: "Keen Scout", XPRequired: 450, Reward: 25},
	{Level: 5, Name: "Pack Follower", XPRequired: 700, Reward: 30},
	{Level: 6, Name: "Trail Hunter", XPRequired: 1000, Reward: 35},
	{Level: 7, Name: "Nimble Tracker", XPRequired: 1350, Reward: 40},
	{Level: 8, Name: "Lone Roamer", XPRequired: 1750, Reward: 45},
	{Level: 9, Name: "Night Wanderer", XPRequired: 2200, Reward: 50},
	{Level: 10, Name: "Howling Novice", XPRequired: 2700, Reward: 100},

	// Intermediate (11-20)
	{Level: 11, Name: "Seasoned Hunter", XPRequired: 3300, Reward: 60},
	{Level: 12, Name: "Forest Stalker", XPRequired: 4000, Reward: 65},
	{Level: 13, Name: "Pack Contributor", XPRequired: 4800, Reward: 70},
	{Level: 14, Name: "Vigilant Sentry", XPRequired: 5700, Reward: 75},
	{Level: 15, Name: "Mountain Rover", XPRequired: 6700, Reward: 80},
	{Level: 16, Name: "Swift Hunter", XPRequired: 7800, Reward: 85},
	{Level: 17, Name: "Territorial Guard", XPRequired: 9000, Reward: 90},
	{Level: 18, Name: "Winter Survivor", XPRequired: 10300, Reward: 95},
	{Level: 19, Name: "Shadow Walker", XPRequired: 11700, Reward: 100},
	{Level: 20, Name: "Pack Defender", XPRequired: 13200, Reward: 200},

	// Advanced (21-30)
	{Level: 21, Name: "Silent Tracker", XPRequired: 14800, Reward: 110},
	{Level: 22, Name: "Mighty Howler", XPRequired: 16500, Reward: 115},
	{Level: 23, Name: "Skilled Predator", XPRequired: 18300, Reward: 120},
	{Level: 24, Name: "Valley Watcher", XPRequired: 20200, Reward: 125},
	{Level: 25, Name: "Tundra Survivor", XPRequired: 22200, Reward: 130},
	{Level: 26, Name: "Bold Explorer", XPRequired: 24300, Reward: 135},
	{Level: 27, Name: "Wilderness Scout", XPRequired: 26500, Reward: 140},
	{Level: 28, Name: "Loyal Companion", XPRequired: 28800, Reward: 145},
	{Level: 29, Name: "Trusted Ally", XPRequired: 31200, Reward: 150},
	{Level: 30, Name: "Pack Lieutenant", XPRequired: 33700, Reward: 300},

	// Expert (31-40)
	{Level: 31, Name: "Feared Hunter", XPRequired: 36300, Reward: 160},
	{Level: 32, Name: "Tactical Predator", XPRequired: 39000, Reward: 165},
	{Level: 33, Name: "Agile Pathfinder", XPRequired: 41800, Reward: 170},
	{Level: 34, Name: "Wise Tracker", XPRequired: 44700, Reward: 175},
	{Level: 35, Name: "Elite Scout", XPRequired: 47700, Reward: 180},
	{Level: 36, Name: "Respected Hunter", XPRequired: 50800, Reward: 185},
	{Level: 37, Name: "Veteran Wanderer", XPRequired: 54000, Reward: 190},
	{Level: 38, Name: "Strategic Prowler", XPRequired: 57300, Reward: 195},
	{Level: 39, Name: "Wise Veteran", XPRequired: 60700, Reward: 200},
	{Level: 40, Name: "Beta Wolf", XPRequired: 64200, Reward: 400},

	// Master (41-50)
	{Level: 41, Name: "Fierce Protector", XPRequired: 67800, Reward: 210},
	{Level: 42, Name: "Honored Elder", XPRequired: 71500, Reward: 215},
	{Level: 43, Name: "Elite Hunter", XPRequired: 75300, Reward: 220},
	{Level: 44, Name: "Legendary Scout", XPRequired: 79200, Reward: 225},
	{Level: 45, Name: "Venerated Leader", XPRequired: 83200, Reward: 230},
	{Level: 46, Name: "Guardian of Trails", XPRequired: 87300, Reward: 235},
	{Level: 47, Name: "Mountain Master", XPRequired: 91500, Reward: 240},
	{Level: 48, Name: "Forest Sovereign", XPRequired: 95800, Reward: 245},
	{Level: 49, Name: "Respected Elder", XPRequired: 100200, Reward: 250},
	{Level: 50, Name: "Alpha Aspirant", XPRequired: 104700, Reward: 500},

	// Grand (51-60)
	{Level: 51, Name: "Wilderness Monarch", XPRequired: 109300, Reward: 260},
	{Level: 52, Name: "Legendary Tracker", XPRequired: 114000, Reward: 265},
	{Level: 53, Name: "Elite Commander", XPRequired: 118800, Reward: 270},
	{Level: 54, Name: "Primal Instinct", XPRequired: 123700, Reward: 275},
	{Level: 55, Name: "Mystic Howler", XPRequired: 128700, Reward: 280},
	{Level: 56, Name: "Ancestral Guardian", XPRequired: 133800, Reward: 285},
	{Level: 57, Name: "Storm Walker", XPRequired: 139000, Reward: 290},
	{Level: 58, Name: "Tundra Master", XPRequired: 144300, Reward: 295},
	{Level: 59, Name: "Ancient Pathfinder", XPRequired: 149700, Reward: 300},
	{Level: 60, Name: "Alpha Contender", XPRequired: 155200, Reward: 600},

	// Epic (61-70)
	{Level: 61, Name: "Wilderness Sovereign", XPRequired: 160800, Reward: 310},
	{Level: 62, Name: "Mountain Emperor", XPRequired: 166500, Reward: 315},
	{Level: 63, Name: "Legendary Guardian", XPRequired: 172300, Reward: 320},
	{Level: 64, Name: "Eternal Wanderer", XPRequired: 178200, Reward: 325},
	{Level: 65, Name: "Silver Fang", XPRequired: 184200, Reward: 330},
	{Level: 66, Name: "Mystic Guardian", XPRequired: 190300, Reward: 335},
	{Level: 67, Name: "Grand Protector", XPRequired: 196500, Reward: 340},
	{Level: 68, Name: "Supreme Tracker", XPRequired: 202800, Reward: 345},
	{Level: 69, Name: "Ancient Spirit", XPRequired: 209200, Reward: 350},
	{Level: 70, Name: "Junior Alpha", XPRequired: 215700, Reward: 700},

	// Legendary (71-80)
	{Level: 71, Name: "Shadow Alpha", XPRequired: 222300, Reward: 360},
	{Level: 72, Name: "Ancestral Spirit", XPRequired: 229000, Reward: 365},
	{Level: 73, Name: "Winter's Guardian", XPRequired: 235800, Reward: 370},
	{Level: 74, Name: "Mystic Emperor", XPRequired: 242700, Reward: 375},
	{Level: 75, Name: "Ancient Alpha", XPRequired: 249700, Reward: 380},
	{Level: 76, Name: "Legendary Emperor", XPRequired: 256800, Reward: 385},
	{Level: 77, Name: "Eternal Guardian", XPRequired: 264000, Reward: 390},
	{Level: 78, Name: "Supreme Alpha", XPRequired: 271300, Reward: 395},
	{Level: 79, Name: "Wolf Deity", XPRequired: 278700, Reward: 400},
	{Level: 80, Name: "Alpha Elite", XPRequired: 286200, Reward: 800},

	// Mythic (81-90)
	{Level: 81, Name: "Primal Alpha", XPRequired: 293800, Reward: 410},
	{Level: 82, Name: "Celestial Wolf", XPRequired: 301500, Reward: 415},
	{Level: 83, Name: "Mythic Howler", XPRequired: 309300, Reward: 420},
	{Level: 84, Name: "Astral Guardian", XPRequired: 317200, Reward: 425},
	{Level: 85, Name: "Phoenix Wolf", XPRequired: 325200, Reward: 430},
	{Level: 86, Name: "Ethereal Wanderer", XPRequired: 333300, Reward: 435},
	{Level: 87, Name: "Cosmic Alpha", XPRequired: 341500, Reward: 440},
	{Level: 88, Name: "Divine Protector", XPRequired: 349800, Reward: 445},
	{Level: 89, Name: "Transcendent Wolf", XPRequired: 358200, Reward: 450},
	{Level: 90, Name: "Alpha Immortal", XPRequired: 366700, Reward: 900},

	// Godly (91-100)
	{Level: 91, Name: "Primal Deity", XPRequired: 375300, Reward: 460},
	{Level: 92, Name: "Wolf God", XPRequired: 384000, Reward: 465},
	{Level: 93, Name: "Celestial Alpha", XPRequired: 392800, Reward: 470},
	{Level: 94, Name: "Universal Guardian", XPRequired: 401700, Reward: 475},
	{Level: 95, Name: "Eternal Emperor", XPRequired: 410700, Reward: 480},
	{Level: 96, Name: "Godly Protector", XPRequired: 419800, Reward: 485},
	{Level: 97, Name: "Cosmic Deity", XPRequired: 429000, Reward: 490},
	{Level: 98, Name: "Supreme God", XPRequired: 438300, Reward: 495},
	{Level: 99, Name: "Transcendent Deity", XPRequired: 447700, Reward: 500},
	{Level: 100, Name: "Alpha Supreme", XPRequired: 457200, Reward: 1000},
}
