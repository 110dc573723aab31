package hal

// BCM2837 (Raspberry Pi 3) peripheral addresses as seen from the ARM core.
const (
	PeripheralBase uintptr = 0x3F000000

	// Power management / watchdog.
	PMRSTC uintptr = PeripheralBase + 0x0010001C
	PMWDOG uintptr = PeripheralBase + 0x00100024

	// VideoCore mailbox 0.
	MailboxRead   uintptr = PeripheralBase + 0x0000B880
	MailboxStatus uintptr = PeripheralBase + 0x0000B898
	MailboxWrite  uintptr = PeripheralBase + 0x0000B8A0
)

const (
	// PMPassword must be or'ed into every PM register write.
	PMPassword uint32 = 0x5A000000
	// PMRSTCFullReset selects a full chip reset when the watchdog expires.
	PMRSTCFullReset uint32 = 0x20
	pmRSTCWRCFGMask uint32 = 0x30

	// WatchdogTickHz is the rate at which PM_WDOG counts down.
	WatchdogTickHz = 65536

	mailboxFull  uint32 = 1 << 31
	mailboxEmpty uint32 = 1 << 30
)

// MailboxChannelTags is the ARM -> VideoCore property channel.
const MailboxChannelTags uint8 = 8
