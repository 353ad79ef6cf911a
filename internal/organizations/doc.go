// Package organizations owns the organization membership and provisioning rules:
// listing the organizations a profile belongs to with its role, creating an
// organization together with its owner membership, and checking access.
//
// Creation writes two rows. When the configured store can do both in one
// transaction (store.OrganizationProvisioner) that path is used; otherwise the
// service inserts the organization, then the membership, and deletes the
// organization again if the membership insert fails. That delete is best
// effort, so readers only ever discover organizations through memberships and
// an orphaned organization row stays invisible.
package organizations
