package store

const schema = `
create table if not exists organizations(
    id bigserial primary key,
    name text unique not null check (length(name) > 0),
    status text not null default 'ACTIVE' check (status in ('ACTIVE','SUSPENDED')),
    created_at timestamptz not null default now()
);

create table if not exists users(
    id bigserial primary key,
    email text unique not null,
    password_hash text not null default '',
    name text not null default '',
    kind text not null check (kind in ('SUPER_ADMIN','ORGANIZATION_ADMIN','EMPLOYEE')),
    status text not null default 'ACTIVE' check (status in ('ACTIVE','BANNED')),
    organization_id bigint references organizations(id) on delete cascade,
    created_at timestamptz not null default now(),
    check ((kind = 'SUPER_ADMIN') = (organization_id is null))
);
create index if not exists users_org_idx on users(organization_id);
create unique index if not exists users_email_lower_idx on users(lower(email));

create table if not exists sessions(
    id bigserial primary key,
    user_id bigint not null references users(id) on delete cascade,
    token text unique not null,
    created_at timestamptz not null default now(),
    expires_at timestamptz not null
);

create table if not exists projects(
    id bigserial primary key,
    organization_id bigint not null references organizations(id) on delete cascade,
    name text not null check (length(name) > 0),
    description text not null default '',
    status text not null default 'ACTIVE' check (status in ('ACTIVE','ARCHIVED')),
    created_at timestamptz not null default now()
);
create index if not exists projects_org_idx on projects(organization_id);

-- A null organization_id marks a global role usable by every organization.
create table if not exists roles(
    id bigserial primary key,
    organization_id bigint references organizations(id) on delete cascade,
    name text not null check (length(name) > 0),
    created_at timestamptz not null default now()
);
create table if not exists role_permissions(
    role_id bigint not null references roles(id) on delete cascade,
    code text not null,
    primary key(role_id, code)
);

create table if not exists project_members(
    project_id bigint not null references projects(id) on delete cascade,
    user_id bigint not null references users(id) on delete cascade,
    role_id bigint not null references roles(id),
    status text not null default 'ACTIVE' check (status in ('ACTIVE','INACTIVE')),
    created_at timestamptz not null default now(),
    primary key(project_id, user_id)
);

create table if not exists ticket_columns(
    id bigserial primary key,
    project_id bigint not null references projects(id) on delete cascade,
    title text not null check (length(title) > 0),
    pos bigint not null default 1000,
    created_at timestamptz not null default now()
);
create index if not exists ticket_columns_project_idx on ticket_columns(project_id);

create table if not exists tickets(
    id bigserial primary key,
    project_id bigint not null references projects(id) on delete cascade,
    column_id bigint not null references ticket_columns(id) on delete cascade,
    title text not null check (length(title) > 0),
    description text not null default '',
    assignee_id bigint references users(id) on delete set null,
    pos bigint not null default 1000,
    created_by bigint references users(id) on delete set null,
    created_at timestamptz not null default now()
);
create index if not exists tickets_column_idx on tickets(column_id);
create index if not exists tickets_project_idx on tickets(project_id);
`
