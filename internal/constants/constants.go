package constants

const (
	AppName            = "banquet"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/banquet"
	Version            = "v0.3.0"

	// DateFormat is the storage date format (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ImportDateFormat is the date format of the CSV import file (dd-Mon-yyyy)
	ImportDateFormat = "02-Jan-2006"

	// DisplayDateFormat is the human-readable date format (Mon,02-Jan-2006)
	DisplayDateFormat = "Mon,02-Jan-2006"

	// MonthFormat is the format of a record's month bucket (YYYY-MM)
	MonthFormat = "2006-01"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "banquet-"
	BackupFileSuffix = ".db"

	// Timings
	Morning = "Morning"
	Evening = "Evening"

	// Meals
	Breakfast      = "Breakfast"
	Lunch          = "Lunch"
	HiTea          = "Hi Tea"
	Dinner         = "Dinner"
	NoMeal         = "No Meal"
	BreakfastLunch = Breakfast + ", " + Lunch
	HiTeaDinner    = HiTea + ", " + Dinner

	// Event types
	EventMICE   = "MICE Event"
	EventSocial = "Social Event"
	EventOther  = "Other"

	// DefaultBallroom is given to hotels created without any ballroom
	DefaultBallroom = "Other"

	// RoleAdmin is the portal role allowed to use administrative routes
	RoleAdmin = "Admin"

	// Lock-in rules
	LockInWeekly           = "weekly"
	LockInWeeklyOrMonthEnd = "weekly-or-month-end"

	// Config defaults
	DefaultTimezone      = "Asia/Kolkata"
	DefaultCity          = "Mumbai"
	DefaultListen        = "127.0.0.1:8080"
	DefaultStatusDays    = 7
	DefaultStatusCron    = "0 9 * * *"
	DefaultCommitRetries = 3
)

var (
	EventTypes   = []string{EventMICE, EventSocial, EventOther}
	MorningMeals = []string{Breakfast, Lunch, BreakfastLunch, NoMeal}
	EveningMeals = []string{HiTea, Dinner, HiTeaDinner, NoMeal}
)
